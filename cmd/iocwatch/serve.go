package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"iocwatch/internal/config"
	"iocwatch/internal/server"
	"iocwatch/internal/threat"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve HTTP and gRPC correlation against a periodically refreshed indicator set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := threat.NewMemoryStore()
	etl := threat.NewETLController(nil)
	etl.Register(threat.NewPulseFetcher(cfg.OTXClient(), cfg.PulseCount))

	srv := server.New(store, etl)
	if err := srv.Refresh(ctx); err != nil {
		if errors.Is(err, threat.ErrMissingCredential) {
			return err
		}
		slog.Error("initial indicator fetch failed, serving with an empty set", "err", err)
	}
	go srv.RunRefresher(ctx, cfg.Server.RefreshInterval)

	srv.StartMetrics(cfg.Server.MetricsAddr)

	go func() {
		slog.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
		if err := srv.StartGRPC(cfg.Server.GRPCAddr); err != nil {
			slog.Error("grpc server error", "err", err)
			stop()
		}
	}()

	httpSrv := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: srv.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.StopGRPC()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown", "err", err)
		}
	}()

	slog.Info("listening", "addr", cfg.Server.HTTPAddr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
