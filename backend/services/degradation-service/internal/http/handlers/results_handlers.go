package handlers

import (
	"net/http"
	"strings"

	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/report"
)

// ResultsHandlers serves the tables of the latest run.
type ResultsHandlers struct {
	results ResultReader
}

// NewResultsHandlers returns handler.
func NewResultsHandlers(results ResultReader) *ResultsHandlers {
	return &ResultsHandlers{results: results}
}

type degradationResponse struct {
	RunID   string                     `json:"run_id"`
	View    string                     `json:"view"`
	Records []models.DegradationRecord `json:"records"`
}

type referencesResponse struct {
	RunID      string                  `json:"run_id"`
	References []models.ReferenceValue `json:"references"`
}

type indicatorsResponse struct {
	RunID      string                    `json:"run_id"`
	Indicators []models.IndicatorStats   `json:"indicators"`
	Comparison []models.ChargeComparison `json:"fast_vs_slow"`
}

func (h *ResultsHandlers) latest(w http.ResponseWriter) (*models.RunResult, bool) {
	result, ok := h.results.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no completed run")
	}
	return result, ok
}

// References handles GET /api/references.
func (h *ResultsHandlers) References(w http.ResponseWriter, r *http.Request) {
	result, ok := h.latest(w)
	if !ok {
		return
	}
	write(w, r, http.StatusOK, referencesResponse{RunID: result.RunID, References: result.References.Values()})
}

// Degradation handles GET /api/degradation?view=all|filtered&car_id=.
func (h *ResultsHandlers) Degradation(w http.ResponseWriter, r *http.Request) {
	view := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("view")))
	if view == "" {
		view = report.ViewFiltered
	}
	if view != report.ViewAll && view != report.ViewFiltered {
		writeError(w, http.StatusBadRequest, "view must be all or filtered")
		return
	}
	result, ok := h.latest(w)
	if !ok {
		return
	}

	records := result.Filtered
	if view == report.ViewAll {
		records = result.Degradation
	}
	if carID := strings.TrimSpace(r.URL.Query().Get("car_id")); carID != "" {
		var matched []models.DegradationRecord
		for _, rec := range records {
			if rec.CarID == carID {
				matched = append(matched, rec)
			}
		}
		if len(matched) == 0 {
			writeError(w, http.StatusNotFound, "car not found")
			return
		}
		records = matched
	}
	if records == nil {
		records = []models.DegradationRecord{}
	}
	write(w, r, http.StatusOK, degradationResponse{RunID: result.RunID, View: view, Records: records})
}

// Indicators handles GET /api/indicators.
func (h *ResultsHandlers) Indicators(w http.ResponseWriter, r *http.Request) {
	result, ok := h.latest(w)
	if !ok {
		return
	}
	write(w, r, http.StatusOK, indicatorsResponse{RunID: result.RunID, Indicators: result.Indicators, Comparison: result.Comparison})
}
