package handler

import (
	"net/http"
	"polcomp/internal/model"
	"polcomp/internal/service"

	"go.uber.org/zap"
)

// DataHandler handles the data explorer endpoints
type DataHandler struct {
	datasets    *service.DatasetService
	submissions *service.SubmissionService
	matches     *service.MatchService
	logger      *zap.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(datasets *service.DatasetService, submissions *service.SubmissionService, matches *service.MatchService, logger *zap.Logger) *DataHandler {
	return &DataHandler{datasets: datasets, submissions: submissions, matches: matches, logger: logger}
}

type datasetsRequest struct {
	model.FilterBatch
	Respondent *model.Respondent `json:"respondent,omitempty"`
}

// Datasets handles POST /v1/data/datasets
func (h *DataHandler) Datasets(w http.ResponseWriter, r *http.Request) {
	var req datasetsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	datasets, err := h.datasets.ApplyFilterBatch(r.Context(), req.FilterBatch, req.Respondent)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": datasets})
}

// Counts handles POST /v1/data/counts
func (h *DataHandler) Counts(w http.ResponseWriter, r *http.Request) {
	var req model.FilterBatch
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	counts, err := h.datasets.CountFilterBatch(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"counts": counts})
}

// Summary handles GET /v1/data/summary
func (h *DataHandler) Summary(w http.ResponseWriter, r *http.Request) {
	n, err := h.submissions.Count(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// IdentityAverages handles GET /v1/identities/averages
func (h *DataHandler) IdentityAverages(w http.ResponseWriter, r *http.Request) {
	averages, err := h.matches.Averages(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if averages == nil {
		writeError(w, http.StatusNotFound, "identity averages not published")
		return
	}
	writeJSON(w, http.StatusOK, averages)
}
