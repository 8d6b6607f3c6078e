package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.Scans.WithLabelValues("hotkey", "found").Inc()
	a.Scans.WithLabelValues("hotkey", "found").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.Scans.WithLabelValues("hotkey", "found")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Scans.WithLabelValues("hotkey", "found")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.GameOpen.Set(1)
	m.CacheHits.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "grimvault_tracker_game_open 1")
	assert.Contains(t, body, "grimvault_lookup_cache_hits_total 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestServe(t *testing.T) {
	m := New()
	m.TicksSkipped.Inc()

	srv, err := m.Serve("127.0.0.1:0", zap.NewNop())
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readAll(t, resp.Body), "grimvault_tracker_ticks_skipped_total 1")

	_, err = m.Serve("not-an-address", zap.NewNop())
	assert.Error(t, err)
}

func TestServer_ShutdownNil(t *testing.T) {
	var s *Server
	assert.NoError(t, s.Shutdown(context.Background()))
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}
