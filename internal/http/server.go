// Package http exposes the conversion API, health checks and Prometheus
// metrics.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tunebridge/internal/core"
)

// Pinger reports storage connectivity for the health endpoints.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	config    *core.ServerConfig
	converter *core.Converter
	db        Pinger
	logger    *zap.Logger
	server    *http.Server
	metrics   *Metrics
	registry  *prometheus.Registry
}

type Metrics struct {
	ConversionsTotal   *prometheus.CounterVec
	ConversionDuration *prometheus.HistogramVec
	AdapterErrorsTotal *prometheus.CounterVec
}

func newMetrics(registry *prometheus.Registry) *Metrics {
	metrics := &Metrics{
		ConversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunebridge_conversions_total",
				Help: "Total number of conversion requests",
			},
			[]string{"platform", "status"},
		),
		ConversionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tunebridge_conversion_duration_seconds",
				Help:    "Time spent converting links",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"platform"},
		),
		AdapterErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunebridge_adapter_errors_total",
				Help: "Total number of adapter errors",
			},
			[]string{"platform", "kind"},
		),
	}

	registry.MustRegister(
		metrics.ConversionsTotal,
		metrics.ConversionDuration,
		metrics.AdapterErrorsTotal,
	)

	return metrics
}

func NewServer(config *core.ServerConfig, converter *core.Converter, db Pinger, logger *zap.Logger) *Server {
	registry := prometheus.NewRegistry()

	s := &Server{
		config:    config,
		converter: converter,
		db:        db,
		logger:    logger,
		metrics:   newMetrics(registry),
		registry:  registry,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/convert", s.handleConvert)
	mux.HandleFunc("GET /up", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// Handler returns the server's routing handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}
