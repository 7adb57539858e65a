package service

import (
	"context"
	"polcomp/internal/cache"
	"polcomp/internal/match"
	"polcomp/internal/metrics"
	"polcomp/internal/model"
	"polcomp/internal/repository"

	"go.uber.org/zap"
)

// MatchService ranks published identity averages against a respondent.
type MatchService struct {
	repo    repository.AveragesRepo
	cache   cache.AveragesCache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewMatchService creates a match service. averagesCache may be nil.
func NewMatchService(repo repository.AveragesRepo, averagesCache cache.AveragesCache, m *metrics.Metrics, logger *zap.Logger) *MatchService {
	return &MatchService{
		repo:    repo,
		cache:   averagesCache,
		metrics: m,
		logger:  logger,
	}
}

// Averages returns the published table from the cache, falling back to the
// repository. The result is nil when nothing has been published.
func (s *MatchService) Averages(ctx context.Context) (*model.IdentityAverages, error) {
	if s.cache != nil {
		cached, err := s.cache.GetAverages(ctx)
		if err != nil {
			s.logger.Warn("identity averages cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	averages, err := s.repo.Load(ctx)
	if err != nil {
		return nil, &model.ReferenceDataError{Resource: "identity averages", Err: err}
	}
	if averages != nil && s.cache != nil {
		if err := s.cache.SetAverages(ctx, averages); err != nil {
			s.logger.Warn("identity averages cache write failed", zap.Error(err))
		}
	}
	return averages, nil
}

// ForScores ranks identities against scores. Malformed scores are rejected;
// an unavailable table yields an empty overall ranking.
func (s *MatchService) ForScores(ctx context.Context, scores model.AxisScores) (model.Matches, error) {
	if problems := scores.Check(); len(problems) > 0 {
		return nil, &model.ValidationError{Entity: "scores", Errors: problems}
	}

	averages, err := s.Averages(ctx)
	if err != nil || averages == nil {
		if err == nil {
			err = model.ErrReferenceDataUnavailable
		}
		s.logger.Error("identity averages unavailable, returning empty matches", zap.Error(err))
		s.metrics.RecordReferenceFault("identity_averages")
		return match.Empty(), nil
	}

	matches, err := match.Rank(scores, averages.Averages)
	if err != nil {
		s.logger.Error("published identity averages are malformed", zap.Error(err))
		s.metrics.RecordReferenceFault("identity_averages")
		return match.Empty(), nil
	}
	return matches, nil
}
