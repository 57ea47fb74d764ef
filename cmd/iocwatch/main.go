package main

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"iocwatch/internal/pipeline"
)

var (
	alertColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// Global flags
var (
	debug          bool
	testMode       bool
	configFile     string
	logPath        string
	outputPath     string
	testOutputPath string
	pulseCount     int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		alertColor.Fprintln(os.Stderr, pipeline.Diagnose(err, debug))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "iocwatch",
		Short:         "Correlate OTX threat indicators with Suricata event logs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(debug)
		},
		RunE: runCorrelate,
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging and full error detail")
	root.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (YAML)")
	root.Flags().BoolVar(&testMode, "test", false, "Run against built-in mock data only")
	root.Flags().StringVar(&logPath, "log-path", "", "Event log to scan (overrides config)")
	root.Flags().StringVar(&outputPath, "output", "", "Match report destination (overrides config)")
	root.Flags().StringVar(&testOutputPath, "test-output", "", "Match report destination for --test runs (overrides config)")
	root.Flags().IntVar(&pulseCount, "pulses", 0, "Number of subscribed pulses to fetch (overrides config)")

	root.AddCommand(newServeCmd())
	return root
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
