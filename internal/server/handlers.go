// File: internal/server/handlers.go
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Health Handlers

// healthHandler returns basic health status
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339Nano),
		"metrics_enabled": s.config.EnableMetrics,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// detailedHealthHandler returns per-component health status
func (s *HTTPServer) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	storageHealthy := s.storage.Ping() == nil
	nodeHealthy := s.client.HealthCheck(r.Context()) == nil

	status := "healthy"
	if !storageHealthy || !nodeHealthy {
		status = "degraded"
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"components": map[string]interface{}{
			"storage":  storageHealthy,
			"rsk_node": nodeHealthy,
			"signer":   s.client.HasSigner(),
		},
	}

	s.writeJSON(w, http.StatusOK, health)
}

// statsHandler returns application statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	storageStats, err := s.storage.GetStorageStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve storage stats", err)
		return
	}

	stats := map[string]interface{}{
		"timestamp":        time.Now(),
		"storage":          storageStats,
		"contracts":        s.registry.Len(),
		"budget_remaining": s.controller.BudgetRemaining(),
		"metrics_enabled":  s.config.EnableMetrics,
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// Readiness State Handlers

// statusHandler returns the latest health snapshots and recent actions
func (s *HTTPServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.storage.GetLatestSnapshots(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve snapshots", err)
		return
	}

	actions, err := s.storage.GetRecentActions(r.Context(), 20)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve actions", err)
		return
	}

	status := map[string]interface{}{
		"timestamp":        time.Now(),
		"snapshots":        snapshots,
		"recent_actions":   actions,
		"budget_remaining": s.controller.BudgetRemaining(),
	}

	s.writeJSON(w, http.StatusOK, status)
}

// listContractsHandler lists the registered contracts
func (s *HTTPServer) listContractsHandler(w http.ResponseWriter, r *http.Request) {
	contracts := s.registry.All()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"contracts": contracts,
		"total":     len(contracts),
	})
}

// listAlertsHandler lists recent alert log entries
func (s *HTTPServer) listAlertsHandler(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	alerts, err := s.storage.GetRecentAlerts(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve alerts", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"limit":  limit,
		"total":  len(alerts),
	})
}

// listReportsHandler lists recent operation reports
func (s *HTTPServer) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 10)

	reports, err := s.storage.GetRecentReports(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve reports", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"limit":   limit,
		"total":   len(reports),
	})
}

// Emergency Handlers

// pauseAllHandler triggers an operator-initiated pause of every
// pauseable contract
func (s *HTTPServer) pauseAllHandler(w http.ResponseWriter, r *http.Request) {
	if !s.client.HasSigner() {
		s.writeError(w, http.StatusConflict, "No privileged signer configured", nil)
		return
	}

	actions := s.controller.PauseAll(r.Context())

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Pause-all executed",
		"actions": actions,
	})
}

// sweepHandler triggers a fund sweep for one contract
func (s *HTTPServer) sweepHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	if _, ok := s.registry.Get(name); !ok {
		s.writeError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	action := s.controller.SweepFunds(r.Context(), name)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Sweep executed",
		"action":  action,
	})
}

// resetBudgetHandler starts a new incident window
func (s *HTTPServer) resetBudgetHandler(w http.ResponseWriter, r *http.Request) {
	s.controller.ResetBudget()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":          "Action budget reset",
		"budget_remaining": s.controller.BudgetRemaining(),
	})
}

// listActionsHandler lists recent emergency actions
func (s *HTTPServer) listActionsHandler(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	actions, err := s.storage.GetRecentActions(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve actions", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"actions": actions,
		"limit":   limit,
		"total":   len(actions),
	})
}

// Utility Methods

// parseLimit reads the limit query parameter with a default
func parseLimit(r *http.Request, def int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return def
}

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
		s.logger.WithFields(logrus.Fields{
			"status":  status,
			"message": message,
			"error":   err,
		}).Error("HTTP error")
	}

	s.writeJSON(w, status, errorResponse)
}
