package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"baas/backend/services/degradation-service/internal/http/middleware"
	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/service"
)

// RunStarter launches a pipeline run in the background.
type RunStarter interface {
	Start(ctx context.Context) error
}

// ResultReader exposes the latest completed run.
type ResultReader interface {
	Latest() (*models.RunResult, bool)
}

// RunsHandlers serves run metadata and triggers.
type RunsHandlers struct {
	starter RunStarter
	results ResultReader
	logger  *zap.Logger
}

// NewRunsHandlers returns handler.
func NewRunsHandlers(starter RunStarter, results ResultReader, logger *zap.Logger) *RunsHandlers {
	return &RunsHandlers{starter: starter, results: results, logger: logger}
}

// Latest handles GET /api/runs/latest.
func (h *RunsHandlers) Latest(w http.ResponseWriter, r *http.Request) {
	result, ok := h.results.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no completed run")
		return
	}
	write(w, r, http.StatusOK, result)
}

// Trigger handles POST /api/runs.
func (h *RunsHandlers) Trigger(w http.ResponseWriter, r *http.Request) {
	err := h.starter.Start(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		writeError(w, http.StatusConflict, "run already in progress")
	case err != nil:
		h.logger.Error("failed to start run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start run")
	default:
		subject, _ := middleware.SubjectFromContext(r.Context())
		h.logger.Info("run triggered", zap.String("subject", subject))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}
