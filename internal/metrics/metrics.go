// Package metrics exposes Prometheus instrumentation for a verification run.
//
// Every run owns its own registry, so tests and repeated runs in one process
// do not collide. All recording methods are safe on a nil *Metrics, which
// is how instrumentation is switched off.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "booksource"

// Verdict label values
const (
	VerdictReachable   = "reachable"
	VerdictUnreachable = "unreachable"
)

// Metrics contains all the Prometheus metrics for the application
type Metrics struct {
	Registry *prometheus.Registry

	ChecksTotal     *prometheus.CounterVec
	CheckDuration   *prometheus.HistogramVec
	ChecksInFlight  prometheus.Gauge
	SourcesLoaded   prometheus.Counter
	LoadErrors      *prometheus.CounterVec
	DuplicatesTotal prometheus.Counter
	FilteredTotal   *prometheus.CounterVec
	SaveErrors      prometheus.Counter
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	buckets := []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30}

	return &Metrics{
		Registry: registry,
		ChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checks_total",
				Help:      "Liveness checks by verdict",
			},
			[]string{"verdict"},
		),
		CheckDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_duration_seconds",
				Help:      "Time spent on a single liveness check",
				Buckets:   buckets,
			},
			[]string{"verdict"},
		),
		ChecksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checks_in_flight",
			Help:      "Liveness checks currently running",
		}),
		SourcesLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_loaded_total",
			Help:      "Book sources read from the input",
		}),
		LoadErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "load_errors_total",
				Help:      "Failed attempts to load the source list",
			},
			[]string{"cause"},
		),
		DuplicatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Reachable sources dropped because their URL was already seen",
		}),
		FilteredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "filtered_total",
				Help:      "Sources removed by the keyword filter",
			},
			[]string{"set"},
		),
		SaveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_errors_total",
			Help:      "Failed attempts to write the result file",
		}),
	}
}

func verdict(reachable bool) string {
	if reachable {
		return VerdictReachable
	}
	return VerdictUnreachable
}

// CheckStarted marks a check as running
func (m *Metrics) CheckStarted() {
	if m == nil {
		return
	}
	m.ChecksInFlight.Inc()
}

// CheckFinished records the outcome of one check
func (m *Metrics) CheckFinished(reachable bool, d time.Duration) {
	if m == nil {
		return
	}
	m.ChecksInFlight.Dec()
	v := verdict(reachable)
	m.ChecksTotal.WithLabelValues(v).Inc()
	m.CheckDuration.WithLabelValues(v).Observe(d.Seconds())
}

// Loaded records how many sources were read
func (m *Metrics) Loaded(n int) {
	if m == nil {
		return
	}
	m.SourcesLoaded.Add(float64(n))
}

// LoadFailed records a load failure by cause
func (m *Metrics) LoadFailed(cause string) {
	if m == nil {
		return
	}
	m.LoadErrors.WithLabelValues(cause).Inc()
}

// Deduplicated records dropped duplicates
func (m *Metrics) Deduplicated(n int) {
	if m == nil {
		return
	}
	m.DuplicatesTotal.Add(float64(n))
}

// Filtered records sources removed from set ("good" or "error")
func (m *Metrics) Filtered(set string, n int) {
	if m == nil {
		return
	}
	m.FilteredTotal.WithLabelValues(set).Add(float64(n))
}

// SaveFailed records a failed result write
func (m *Metrics) SaveFailed() {
	if m == nil {
		return
	}
	m.SaveErrors.Inc()
}

// Handler returns the HTTP handler serving this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Server serves /metrics until shut down
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// StartServer listens on addr and serves the metrics in the background
func (m *Metrics) StartServer(addr string, logger *slog.Logger) (*Server, error) {
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
		listener: ln,
		logger:   logger,
	}

	go func() {
		logger.Info("Starting metrics server", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", "error", err)
		}
	}()
	return s, nil
}

// Addr returns the address the server listens on
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("Shutting down metrics server")
	return s.srv.Shutdown(ctx)
}
