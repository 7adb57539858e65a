package handler

import (
	"net/http"
	"polcomp/internal/model"
	"polcomp/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// QuizHandler handles question, scoring, submission and match endpoints
type QuizHandler struct {
	submissions *service.SubmissionService
	matches     *service.MatchService
	logger      *zap.Logger
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(submissions *service.SubmissionService, matches *service.MatchService, logger *zap.Logger) *QuizHandler {
	return &QuizHandler{submissions: submissions, matches: matches, logger: logger}
}

type scoreRequest struct {
	Answers model.AnswerSet `json:"answers"`
}

type scoresBody struct {
	Scores model.AxisScores `json:"scores"`
}

type resultResponse struct {
	ID      string           `json:"id"`
	Date    model.Date       `json:"date"`
	Scores  model.AxisScores `json:"scores"`
	Matches model.Matches    `json:"matches"`
}

// Questions handles GET /v1/questions
func (h *QuizHandler) Questions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.submissions.Questions(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": qs})
}

// Score handles POST /v1/scores
func (h *QuizHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scores, err := h.submissions.Score(r.Context(), req.Answers)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, scoresBody{Scores: scores})
}

// Submit handles POST /v1/results
func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.Submission
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.submissions.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetResult handles GET /v1/results/{id}
func (h *QuizHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.submissions.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	matches, err := h.matches.ForScores(r.Context(), rec.Scores)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resultResponse{
		ID:      rec.ID,
		Date:    rec.Date,
		Scores:  rec.Scores,
		Matches: matches,
	})
}

// Matches handles POST /v1/matches
func (h *QuizHandler) Matches(w http.ResponseWriter, r *http.Request) {
	var req scoresBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	matches, err := h.matches.ForScores(r.Context(), req.Scores)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}
