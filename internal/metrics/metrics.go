package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Session metrics
	SessionsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studytime_sessions_opened_total",
			Help: "Total study sessions opened",
		},
	)

	SessionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studytime_sessions_closed_total",
			Help: "Total study sessions closed",
		},
		[]string{"reason"}, // "end", "roll", "dangling"
	)

	MinutesCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studytime_minutes_credited_total",
			Help: "Whole study minutes credited to daily totals",
		},
	)

	// Totals reported by the last poll
	TodayMinutes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "studytime_today_minutes",
			Help: "Study minutes today, including the open session",
		},
	)

	WeekMinutes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "studytime_week_minutes",
			Help: "Study minutes over the last 7 days, including the open session",
		},
	)

	AppActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "studytime_app_active",
			Help: "1 when the host application is in the foreground",
		},
	)

	// Storage metrics
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studytime_store_operations_total",
			Help: "Study data loads and saves by result",
		},
		[]string{"op", "result"},
	)

	PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studytime_poll_duration_seconds",
			Help:    "Duration of a study time poll",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		SessionsOpened,
		SessionsClosed,
		MinutesCredited,
		TodayMinutes,
		WeekMinutes,
		AppActive,
		StoreOperations,
		PollDuration,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
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
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			// Use systemd socket-activated listener
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			// Create and bind listener ourselves
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
