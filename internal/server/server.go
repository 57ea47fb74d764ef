package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"iocwatch/internal/correlate"
	"iocwatch/internal/eventlog"
	"iocwatch/internal/metrics"
	"iocwatch/internal/report"
	"iocwatch/internal/threat"
)

// maxBodySize bounds a posted event batch.
const maxBodySize = 32 << 20

// Refresher refreshes the indicator set. *threat.ETLController satisfies it.
type Refresher interface {
	Run(ctx context.Context) (*threat.IndicatorSet, error)
}

// Server wraps HTTP and gRPC front ends that correlate submitted events
// against the current indicator set.
type Server struct {
	store     *threat.MemoryStore
	refresher Refresher
	router    *mux.Router
	grpcSrv   *grpc.Server
}

// New creates a server that serves store and refills it from refresher.
func New(store *threat.MemoryStore, refresher Refresher) *Server {
	s := &Server{store: store, refresher: refresher, router: mux.NewRouter(), grpcSrv: grpc.NewServer()}
	s.routes()
	RegisterCorrelatorServer(s.grpcSrv, &correlatorService{srv: s})
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/v1/correlate", s.handleCorrelate).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/indicators", s.handleIndicators).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) StartMetrics(addr string) {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, m); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "err", err)
		}
	}()
}

// Refresh fetches a new indicator set and swaps it into the store. On
// failure the previous set stays in place.
func (s *Server) Refresh(ctx context.Context) error {
	set, err := s.refresher.Run(ctx)
	if err != nil {
		return err
	}
	s.store.Replace(set)
	slog.Info("indicator set refreshed", "count", set.Len())
	return nil
}

// RunRefresher refreshes the indicator set every interval until ctx is done.
func (s *Server) RunRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				slog.Error("indicator refresh failed, keeping previous set", "err", err)
			}
		}
	}
}

// correlateBatch correlates one batch against a single snapshot of the set.
func (s *Server) correlateBatch(records []eventlog.LogRecord) correlate.MatchReport {
	set := s.store.Current()
	start := time.Now()
	matches := correlate.Correlate(records, set)
	metrics.CorrelationDuration.Observe(time.Since(start).Seconds())
	metrics.RecordsRead.Add(float64(len(records)))
	metrics.Matches.Add(float64(matches.Len()))
	return matches
}

func (s *Server) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	records, malformed, err := eventlog.Collect(eventlog.NewReader(body).Records())
	if err != nil {
		http.Error(w, "could not read event batch", http.StatusBadRequest)
		return
	}
	metrics.ParseErrors.Add(float64(len(malformed)))

	matches := s.correlateBatch(records)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Parse-Errors", strconv.Itoa(len(malformed)))
	if err := report.Write(w, matches); err != nil {
		slog.Error("write correlate response", "err", err)
	}
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{"count": s.store.Current().Len()}); err != nil {
		slog.Error("write indicators response", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) StartGRPC(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeGRPC(ln)
}

// ServeGRPC serves the correlator service on ln until StopGRPC.
func (s *Server) ServeGRPC(ln net.Listener) error {
	if err := s.grpcSrv.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) StopGRPC() { s.grpcSrv.GracefulStop() }
