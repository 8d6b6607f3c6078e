// Package metrics holds the Prometheus collectors for the tracker, the scan
// pipeline and the lookup client.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds all collectors. Every Metrics has its own registry so tests
// and multiple instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	// Tracker metrics
	Ticks        *prometheus.CounterVec
	TicksSkipped prometheus.Counter
	TickDuration prometheus.Histogram
	Transitions  *prometheus.CounterVec
	BoundsPushes prometheus.Counter
	GameOpen     prometheus.Gauge

	// Scan metrics
	Scans         *prometheus.CounterVec
	ScanDuration  prometheus.Histogram
	CaptureErrors prometheus.Counter

	// Lookup metrics
	LookupRequests *prometheus.CounterVec
	LookupDuration prometheus.Histogram
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEntries   prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Ticks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grimvault_tracker_ticks_total",
				Help: "Tracker ticks by resulting state",
			},
			[]string{"state"},
		),
		TicksSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "grimvault_tracker_ticks_skipped_total",
				Help: "Ticks skipped because the previous tick was still running",
			},
		),
		TickDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "grimvault_tracker_tick_duration_seconds",
				Help:    "Tracker tick duration in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grimvault_tracker_transitions_total",
				Help: "Overlay state transitions",
			},
			[]string{"from", "to"},
		),
		BoundsPushes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "grimvault_tracker_bounds_pushes_total",
				Help: "Overlay bounds updates pushed to the OS window",
			},
		),
		GameOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "grimvault_tracker_game_open",
				Help: "1 while the overlay is bound to the game window",
			},
		),

		Scans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grimvault_scans_total",
				Help: "Scan runs by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),
		ScanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "grimvault_scan_duration_seconds",
				Help:    "End-to-end scan duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
			},
		),
		CaptureErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "grimvault_capture_errors_total",
				Help: "Tooltip captures that failed inside the native module",
			},
		),

		LookupRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grimvault_lookup_requests_total",
				Help: "Price-check HTTP requests by status",
			},
			[]string{"status"},
		),
		LookupDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "grimvault_lookup_duration_seconds",
				Help:    "Price-check request duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 15},
			},
		),
		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "grimvault_lookup_cache_hits_total",
				Help: "Price checks answered from the cache",
			},
		),
		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "grimvault_lookup_cache_misses_total",
				Help: "Price checks that went to the network",
			},
		),
		CacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "grimvault_lookup_cache_entries",
				Help: "Price-check results currently cached",
			},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSince records the time elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Server exposes /metrics on a local address.
type Server struct {
	srv  *http.Server
	addr string
}

// Serve starts listening on addr and serves /metrics in the background. The
// listener is bound before Serve returns, so a bad address fails here.
func (m *Metrics) Serve(addr string, logger *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	s := &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		addr: ln.Addr().String(),
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	logger.Info("Metrics server listening", zap.String("addr", s.addr))
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
