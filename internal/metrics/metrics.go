package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Session metrics
	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kfocus_sessions_started_total",
			Help: "Total focus sessions started",
		},
		[]string{"deep_focus"},
	)

	SessionsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kfocus_sessions_finalized_total",
			Help: "Total focus sessions completed or canceled",
		},
		[]string{"outcome"},
	)

	FocusMinutes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kfocus_focus_minutes_total",
			Help: "Total focused minutes across finalized sessions",
		},
	)

	ActiveSession = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kfocus_active_session",
			Help: "1 while a focus session is published, otherwise 0",
		},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kfocus_reconcile_duration_seconds",
			Help:    "Duration of session reconcile passes in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Shared state metrics
	BridgeDecodeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kfocus_bridge_decode_failures_total",
			Help: "Shared state values that could not be decoded and were treated as absent",
		},
		[]string{"key"},
	)

	// Scheduler metrics
	ScheduleTriggers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kfocus_schedule_triggers_total",
			Help: "Total sessions started by schedules",
		},
	)

	ScheduleUnsatisfiable = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kfocus_schedule_unsatisfiable_total",
			Help: "Enabled schedules with no upcoming occurrence",
		},
	)

	// Preset metrics
	PresetCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kfocus_preset_cache_hits_total",
			Help: "Preset name cache hits",
		},
	)

	PresetCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kfocus_preset_cache_misses_total",
			Help: "Preset name cache misses",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsStarted,
		SessionsFinalized,
		FocusMinutes,
		ActiveSession,
		ReconcileDuration,
		BridgeDecodeFailures,
		ScheduleTriggers,
		ScheduleUnsatisfiable,
		PresetCacheHits,
		PresetCacheMisses,
	)
}

// Server serves /metrics and /health for the daemon.
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // set by systemd socket activation or Start
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Handler exposes the mux for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Start binds the listener, unless one was supplied, and serves in the
// background. Bind errors are returned to the caller.
func (s *Server) Start() error {
	if s.listener == nil {
		ln, err := net.Listen("tcp", s.server.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
		}
		s.listener = ln
	} else {
		s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
	}

	s.logger.Info().Str("addr", s.Addr()).Msg("Starting metrics server")
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop drains in-flight scrapes for up to five seconds.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
