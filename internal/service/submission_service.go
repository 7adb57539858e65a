package service

import (
	"context"
	"polcomp/internal/metrics"
	"polcomp/internal/model"
	"polcomp/internal/repository"
	"polcomp/internal/scoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmissionService scores quiz answers and stores results.
type SubmissionService struct {
	results repository.ResultRepo
	refdata ReferenceData
	metrics *metrics.Metrics
	logger  *zap.Logger

	today func() model.Date
}

// NewSubmissionService creates a submission service.
func NewSubmissionService(results repository.ResultRepo, refdata ReferenceData, m *metrics.Metrics, logger *zap.Logger) *SubmissionService {
	return &SubmissionService{
		results: results,
		refdata: refdata,
		metrics: m,
		logger:  logger,
		today:   model.Today,
	}
}

// Questions returns the question bank without weights.
func (s *SubmissionService) Questions(ctx context.Context) ([]model.QuestionText, error) {
	qs, err := s.refdata.Questions(ctx)
	if err != nil {
		s.metrics.RecordReferenceFault("questions")
		return nil, err
	}
	out := make([]model.QuestionText, len(qs))
	for i, q := range qs {
		out[i] = model.QuestionText{ID: q.ID, Text: q.Text}
	}
	return out, nil
}

// Score computes axis scores for a complete answer set without storing it.
func (s *SubmissionService) Score(ctx context.Context, answers model.AnswerSet) (model.AxisScores, error) {
	weights, err := s.refdata.Weights(ctx)
	if err != nil {
		s.metrics.RecordReferenceFault("weights")
		return nil, err
	}
	return scoring.ComputeScores(answers, weights)
}

// Submit validates a submission, scores it server side and stores it dated
// today. Nothing is stored unless every check passes.
func (s *SubmissionService) Submit(ctx context.Context, sub model.Submission) (*model.SubmissionResult, error) {
	rec, err := s.prepare(ctx, sub)
	if err != nil {
		s.metrics.RecordSubmission(submissionStatus(err))
		return nil, err
	}

	id, err := s.results.Insert(ctx, rec)
	if err != nil {
		s.metrics.RecordSubmission(metrics.StatusError)
		s.logger.Error("failed to store result", zap.Error(err))
		return nil, err
	}

	s.metrics.RecordSubmission(metrics.StatusOK)
	s.logger.Info("result stored",
		zap.String("result_id", id),
		zap.String("group_id", rec.GroupID),
	)
	return &model.SubmissionResult{ResultID: id, Scores: rec.Scores}, nil
}

func (s *SubmissionService) prepare(ctx context.Context, sub model.Submission) (*model.ResultRecord, error) {
	if sub.GroupID != "" {
		if _, err := uuid.Parse(sub.GroupID); err != nil {
			return nil, &model.ValidationError{Entity: "submission", Errors: []string{"group_id must be a UUID"}}
		}
	}

	scores, err := s.Score(ctx, sub.Answers)
	if err != nil {
		return nil, err
	}

	schema, err := s.refdata.Schema(ctx)
	if err != nil {
		s.metrics.RecordReferenceFault("schema")
		return nil, err
	}
	demographics, err := schema.ValidateDemographics(sub.Demographics)
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateHowFound(sub.HowFound); err != nil {
		return nil, err
	}

	answers := make(model.AnswerSet, len(sub.Answers))
	for id, v := range sub.Answers {
		answers[id] = v
	}

	return &model.ResultRecord{
		Date:         s.today(),
		GroupID:      sub.GroupID,
		Demographics: demographics,
		Scores:       scores,
		Answers:      answers,
		HowFound:     sub.HowFound,
	}, nil
}

// Get returns a stored result or model.ErrNotFound.
func (s *SubmissionService) Get(ctx context.Context, id string) (*model.ResultRecord, error) {
	rec, err := s.results.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, model.ErrNotFound
	}
	return rec, nil
}

// Count returns the number of stored results.
func (s *SubmissionService) Count(ctx context.Context) (int, error) {
	return s.results.Total(ctx)
}

func submissionStatus(err error) string {
	if isClientError(err) {
		return metrics.StatusInvalid
	}
	return metrics.StatusError
}
