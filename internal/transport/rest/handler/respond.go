package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"polcomp/internal/model"

	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies. A full filter batch is well under this.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string   `json:"error"`
	Details   []string `json:"details,omitempty"`
	Retryable bool     `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps service errors onto status codes.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		validation *model.ValidationError
		missing    *model.MissingAnswerError
		storage    *model.StorageError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + validation.Entity, Details: validation.Errors})
	case errors.As(err, &missing):
		details := make([]string, len(missing.QuestionIDs))
		for i, id := range missing.QuestionIDs {
			details[i] = fmt.Sprintf("question %d is unanswered", id)
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing answers", Details: details})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrReferenceDataUnavailable):
		logger.Error("reference data unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "reference data unavailable", Retryable: true})
	case errors.As(err, &storage):
		logger.Error("storage error", zap.String("op", storage.Op), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable", Retryable: storage.Retryable()})
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads exactly one JSON value into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
