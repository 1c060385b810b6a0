// File: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/connection"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/emergency"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/metrics"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/registry"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/storage"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`
}

// HTTPServer exposes the orchestrator's operational surface: health,
// latest snapshots, the alert and action logs, and the operator
// emergency triggers
type HTTPServer struct {
	config         *ServerConfig
	server         *http.Server
	router         *mux.Router
	storage        storage.Storage
	registry       *registry.Registry
	client         connection.Client
	controller     *emergency.Controller
	metricsManager *metrics.Manager
	logger         *logrus.Logger
	cancelUpdater  context.CancelFunc
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	config *ServerConfig,
	store storage.Storage,
	reg *registry.Registry,
	client connection.Client,
	controller *emergency.Controller,
	metricsManager *metrics.Manager,
) (*HTTPServer, error) {

	server := &HTTPServer{
		config:         config,
		storage:        store,
		registry:       reg,
		client:         client,
		controller:     controller,
		metricsManager: metricsManager,
		logger:         utils.GetLogger(),
	}

	server.setupRouter()

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server, nil
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	// Middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	// API routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Health check endpoints
	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
		api.HandleFunc("/health/detailed", s.detailedHealthHandler).Methods("GET")
	}

	// Metrics endpoints
	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
		api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	}

	// Readiness state endpoints
	api.HandleFunc("/status", s.statusHandler).Methods("GET")
	api.HandleFunc("/contracts", s.listContractsHandler).Methods("GET")
	api.HandleFunc("/alerts", s.listAlertsHandler).Methods("GET")
	api.HandleFunc("/reports", s.listReportsHandler).Methods("GET")

	// Operator emergency triggers
	api.HandleFunc("/emergency/pause-all", s.pauseAllHandler).Methods("POST")
	api.HandleFunc("/emergency/sweep/{name}", s.sweepHandler).Methods("POST")
	api.HandleFunc("/emergency/reset-budget", s.resetBudgetHandler).Methods("POST")
	api.HandleFunc("/emergency/actions", s.listActionsHandler).Methods("GET")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	if s.metricsManager != nil {
		s.metricsManager.UpdateUptime()
		s.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("storage", s.storage.Ping() == nil)

		updaterCtx, cancel := context.WithCancel(context.Background())
		s.cancelUpdater = cancel
		go s.uptimeUpdater(updaterCtx)
	}

	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Give the server a moment to start and check for immediate binding errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// uptimeUpdater refreshes uptime and component health gauges until the
// server is stopped
func (s *HTTPServer) uptimeUpdater(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.metricsManager.UpdateUptime()
			s.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("storage", s.storage.Ping() == nil)

			checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			s.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("rsk_node", s.client.HealthCheck(checkCtx) == nil)
			cancel()
		}
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	if s.cancelUpdater != nil {
		s.cancelUpdater()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
