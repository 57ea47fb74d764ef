package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"iocwatch/internal/config"
	"iocwatch/internal/pipeline"
	"iocwatch/internal/threat"
)

func runCorrelate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		if !testMode {
			return err
		}
		slog.Warn("ignoring configuration error in test mode", "err", err)
		cfg = config.Default()
	}
	applyFlagOverrides(cmd, cfg)

	var res *pipeline.Result
	if testMode {
		res, err = pipeline.RunFixture(cfg.TestOutputFile, slog.Default(), debug)
	} else {
		res, err = runLive(cmd.Context(), cfg)
	}
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), res)
	return nil
}

func runLive(ctx context.Context, cfg *config.Config) (*pipeline.Result, error) {
	slog.Debug("configuration loaded",
		"log_path", cfg.LogPath,
		"output_file", cfg.OutputFile,
		"pulse_count", cfg.PulseCount,
		"otx_base_url", cfg.OTX.BaseURL,
		"api_key_set", cfg.OTX.APIKey != "")

	etl := threat.NewETLController(nil)
	etl.Register(threat.NewPulseFetcher(cfg.OTXClient(), cfg.PulseCount))

	p := &pipeline.Pipeline{
		Source:     etl,
		LogPath:    cfg.LogPath,
		OutputPath: cfg.OutputFile,
		Logger:     slog.Default(),
		Debug:      debug,
	}
	return p.Run(ctx)
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-path") {
		cfg.LogPath = logPath
	}
	if flags.Changed("output") {
		cfg.OutputFile = outputPath
	}
	if flags.Changed("test-output") {
		cfg.TestOutputFile = testOutputPath
	}
	if flags.Changed("pulses") && pulseCount > 0 {
		cfg.PulseCount = pulseCount
	}
}

func printSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintln(w)
	if res.Matches.Len() == 0 {
		successColor.Fprintln(w, "No suspicious activity matched the current IOCs.")
		return
	}
	alertColor.Fprintln(w, "Suspicious activity detected!")
	fmt.Fprintf(w, "Total matched events: %d\n", res.Matches.Len())
	infoColor.Fprintf(w, "Details saved to: %s\n", res.OutputPath)
}
