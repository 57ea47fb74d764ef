package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"iocwatch/internal/config"
	"iocwatch/internal/threat"
)

const maxDescription = 60

// listingStore keeps the full indicator records so they can be printed.
type listingStore struct {
	mu   sync.Mutex
	data []threat.ThreatIndicator
}

func (l *listingStore) SaveIndicators(ctx context.Context, ind []threat.ThreatIndicator) error {
	l.mu.Lock()
	l.data = append(l.data, ind...)
	l.mu.Unlock()
	return nil
}

func main() {
	var configFile, indicatorType string

	cmd := &cobra.Command{
		Use:           "feed-loader",
		Short:         "List recently exported OTX indicators",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configFile, indicatorType)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&indicatorType, "type", "IPv4", "Indicator type to export")

	if err := cmd.Execute(); err != nil {
		slog.Error("feed-loader failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile, indicatorType string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	store := &listingStore{}
	controller := threat.NewETLController(store)
	controller.Register(threat.NewExportFetcher(cfg.OTXClient(), indicatorType, cfg.ExportLimit))

	ctx, cancel := context.WithTimeout(ctx, cfg.OTX.Timeout+5*time.Second)
	defer cancel()

	if _, err := controller.Run(ctx); err != nil {
		return err
	}

	fmt.Println(render(store.data))
	return nil
}

func render(indicators []threat.ThreatIndicator) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("IP", "Protocol", "Port", "Created", "Description").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})

	for _, ind := range indicators {
		proto, _ := threat.ExtractProtocol(ind.Description)
		port, _ := threat.ExtractPort(ind.Description)
		t.Row(ind.Indicator, orDash(proto), orDash(port), orDash(ind.Created), truncate(ind.Description, maxDescription))
	}
	return t.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return orDash(s)
	}
	return string(r[:n-1]) + "…"
}
