package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iocwatch/internal/threat"
)

// stubRefresher returns a fresh set without touching any store.
type stubRefresher struct {
	indicators []threat.ThreatIndicator
	err        error
}

func (s *stubRefresher) Run(ctx context.Context) (*threat.IndicatorSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return threat.SetFromIndicators(s.indicators), nil
}

func newTestServer(t *testing.T, indicators ...string) (*Server, *stubRefresher) {
	t.Helper()
	store := threat.NewMemoryStore()
	ref := &stubRefresher{}
	for _, v := range indicators {
		ref.indicators = append(ref.indicators, threat.ThreatIndicator{Indicator: v})
	}
	srv := New(store, ref)
	require.NoError(t, srv.Refresh(context.Background()))
	return srv, ref
}

const batch = `{"timestamp":"t1","src_ip":"1.2.3.4","dest_ip":"5.6.7.8","alert":{"signature":"Test Sig"}}
not json
{"timestamp":"t2","src_ip":"10.0.0.1","dest_ip":"8.8.8.8","alert":{"signature":"DNS Leak"}}
`

func TestHandleCorrelate(t *testing.T) {
	srv, _ := newTestServer(t, "1.2.3.4", "8.8.8.8")

	req := httptest.NewRequest(http.MethodPost, "/v1/correlate", strings.NewReader(batch))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Parse-Errors"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0]["timestamp"])
	assert.Equal(t, "t2", got[1]["timestamp"])
}

func TestHandleCorrelate_NoMatches(t *testing.T) {
	srv, _ := newTestServer(t, "9.9.9.9")

	req := httptest.NewRequest(http.MethodPost, "/v1/correlate", strings.NewReader(batch))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandleCorrelate_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/correlate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleIndicators(t *testing.T) {
	srv, _ := newTestServer(t, "1.1.1.1", "2.2.2.2", "1.1.1.1")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/indicators", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefresh_FailureKeepsPreviousSet(t *testing.T) {
	srv, ref := newTestServer(t, "1.2.3.4")

	ref.err = &threat.FetchError{Source: "otx", Err: errors.New("unreachable")}
	require.Error(t, srv.Refresh(context.Background()))

	assert.True(t, srv.store.Current().Contains("1.2.3.4"))
}

type failingWriter struct {
	header http.Header
	status int
}

func (w *failingWriter) Header() http.Header         { return w.header }
func (w *failingWriter) WriteHeader(status int)      { w.status = status }
func (w *failingWriter) Write(p []byte) (int, error) { return 0, errors.New("client gone") }

func TestHandleIndicators_WriteFailure(t *testing.T) {
	srv, _ := newTestServer(t, "1.1.1.1")

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	w := &failingWriter{header: http.Header{}}
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/indicators", nil))

	assert.Contains(t, logs.String(), "write indicators response")
	assert.Contains(t, logs.String(), "client gone")
}

func TestRefresh_SwapsSet(t *testing.T) {
	srv, ref := newTestServer(t, "1.2.3.4")

	ref.indicators = []threat.ThreatIndicator{{Indicator: "5.6.7.8"}}
	require.NoError(t, srv.Refresh(context.Background()))
	assert.Equal(t, 1, srv.store.Current().Len())

	assert.False(t, srv.store.Current().Contains("1.2.3.4"))
	assert.True(t, srv.store.Current().Contains("5.6.7.8"))
}
