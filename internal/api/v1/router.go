// Package v1 provides version 1 of the HTTP API.
package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sefa-b/go-bill-ledger/internal/repository"
	"github.com/sefa-b/go-bill-ledger/internal/service"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
	"github.com/sefa-b/go-bill-ledger/internal/worker"
)

// AuditStatsProvider reports the counters of the audit worker pool.
type AuditStatsProvider interface {
	GetStats() worker.Stats
}

// Router holds the dependencies needed for v1 API routes.
type Router struct {
	services *service.Services
	health   repository.Pinger
	metrics  *utils.MetricsCollector

	auditStats AuditStatsProvider
}

// NewRouter creates a new v1 API router. health and metrics may be nil.
func NewRouter(services *service.Services, health repository.Pinger, metrics *utils.MetricsCollector) *Router {
	return &Router{
		services: services,
		health:   health,
		metrics:  metrics,
	}
}

// SetAuditStats exposes the audit pool counters on /api/v1/metrics/audit.
func (r *Router) SetAuditStats(p AuditStatsProvider) {
	r.auditStats = p
}

// RegisterRoutes registers all v1 API routes and operational endpoints on the provided mux.
func (r *Router) RegisterRoutes(mux *http.ServeMux) {
	// Operational endpoints
	mux.HandleFunc("GET /healthz", r.handleHealthz)
	mux.HandleFunc("GET /readyz", r.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/ping", r.handlePing)
	mux.HandleFunc("GET /api/v1/metrics/basic", r.handleBasicMetrics)
	mux.HandleFunc("GET /api/v1/metrics/circuit-breakers", r.handleCircuitBreakerMetrics)
	mux.HandleFunc("GET /api/v1/metrics/audit", r.handleAuditMetrics)

	// Bill routes
	mux.HandleFunc("GET /api/v1/bills", r.handleListBills)
	mux.HandleFunc("POST /api/v1/bills/user/{userID}/transaction/{transactionID}", r.handleCreateBill)
	mux.HandleFunc("GET /api/v1/bills/{id}", r.handleGetBill)
	mux.HandleFunc("PUT /api/v1/bills/{id}", r.handleUpdateBill)
	mux.HandleFunc("DELETE /api/v1/bills/{id}", r.handleDeleteBill)
	mux.HandleFunc("GET /api/v1/bills/user/{userID}", r.handleListBillsByUser)
	mux.HandleFunc("GET /api/v1/bills/user/{userID}/transaction/{transactionID}", r.handleListBillsByUserAndTransaction)
	mux.HandleFunc("GET /api/v1/bills/user/{userID}/income", r.handleListIncomeByUser)
	mux.HandleFunc("GET /api/v1/bills/user/{userID}/expense", r.handleListExpenseByUser)
}

// handlePing responds to ping requests for testing connectivity.
func (r *Router) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

// handleHealthz reports process liveness.
func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz pings the store and, when configured, the cache. Only the
// store decides readiness; the cache is optional.
func (r *Router) handleReadyz(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := http.StatusOK

	if r.health != nil {
		if err := r.health.Ping(ctx); err != nil {
			utils.Warn("readiness check failed", "component", "store", "error", err.Error())
			checks["store"] = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	if r.services != nil && r.services.Cache != nil {
		if err := r.services.Cache.Health(ctx); err != nil {
			checks["cache"] = "degraded"
		} else {
			checks["cache"] = "ok"
		}
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}

	writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}

// handleBasicMetrics returns a JSON snapshot of the application counters.
func (r *Router) handleBasicMetrics(w http.ResponseWriter, _ *http.Request) {
	if r.metrics == nil {
		writeError(w, http.StatusNotFound, "Metrics are disabled")
		return
	}
	writeJSON(w, http.StatusOK, r.metrics.GetMetrics())
}

// handleCircuitBreakerMetrics returns the state of every registered circuit breaker.
func (r *Router) handleCircuitBreakerMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"circuit_breakers": utils.GetCircuitBreakerMetrics()})
}

// handleAuditMetrics returns the audit worker pool counters.
func (r *Router) handleAuditMetrics(w http.ResponseWriter, _ *http.Request) {
	if r.auditStats == nil {
		writeError(w, http.StatusNotFound, "Audit queue is disabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"audit": r.auditStats.GetStats()})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Error("failed to encode response", "error", err.Error())
	}
}

// errorResponse is the body of every non-validation error.
type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// writeError writes an error response in the API's error format.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: status})
}
