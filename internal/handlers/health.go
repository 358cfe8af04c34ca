package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aigoflow/chef-gateway/internal/models"
	"github.com/aigoflow/chef-gateway/internal/services"
)

// maxLogLimit caps how many request log rows one /logs call can ask for.
const maxLogLimit = 1000

type StatusReporter interface {
	Status() services.HealthStatus
}

type LogReader interface {
	GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error)
}

type HealthHandler struct {
	health StatusReporter
	logs   LogReader
}

func NewHealthHandler(health StatusReporter, logs LogReader) *HealthHandler {
	return &HealthHandler{health: health, logs: logs}
}

func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /logs", h.handleLogs)
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.health.Status())
}

func (h *HealthHandler) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = min(n, maxLogLimit)
		}
	}

	logs, err := h.logs.GetRequestLogs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get logs: %v", err))
		return
	}
	if logs == nil {
		logs = []*models.RequestLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
