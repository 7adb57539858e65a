package service

import (
	"context"
	"fmt"
	"polcomp/internal/cache"
	"polcomp/internal/filter"
	"polcomp/internal/metrics"
	"polcomp/internal/model"
	"polcomp/internal/repository"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// IdentityConfig configures the identity-average job.
type IdentityConfig struct {
	// MinResults is exclusive: an identity needs more matches than this.
	MinResults  int
	SampleCap   int
	WindowStart model.Date
	Concurrency int
}

// IdentityAverageService computes and publishes mean axis scores per
// identity.
type IdentityAverageService struct {
	results repository.ResultRepo
	refdata ReferenceData
	repo    repository.AveragesRepo
	cache   cache.AveragesCache
	metrics *metrics.Metrics
	logger  *zap.Logger
	cfg     IdentityConfig

	today func() model.Date
}

// NewIdentityAverageService creates the service. averagesCache may be nil.
func NewIdentityAverageService(
	results repository.ResultRepo,
	refdata ReferenceData,
	repo repository.AveragesRepo,
	averagesCache cache.AveragesCache,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg IdentityConfig,
) *IdentityAverageService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &IdentityAverageService{
		results: results,
		refdata: refdata,
		repo:    repo,
		cache:   averagesCache,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		today:   model.Today,
	}
}

type identitySample struct {
	count int
	mean  model.AxisScores
}

// Compute averages every schema identity plus the population sentinel over
// [WindowStart, today]. Each identity is queried independently, so the table
// is not a single snapshot.
func (s *IdentityAverageService) Compute(ctx context.Context) (*model.IdentityAverages, error) {
	ctx, span := startSpan(ctx, "IdentityAverageService.Compute")
	defer span.End()

	schema, err := s.refdata.Schema(ctx)
	if err != nil {
		s.metrics.RecordReferenceFault("schema")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	identities := append(append([]string{}, schema.Identities...), model.AverageResultIdentity)
	samples := make([]identitySample, len(identities))
	maxDate := s.today()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, identity := range identities {
		q := repository.ResultQuery{
			MinDate:   s.cfg.WindowStart,
			MaxDate:   maxDate,
			Predicate: filter.ForIdentity(identity),
			Order:     model.OrderRecent,
			Limit:     s.cfg.SampleCap,
		}
		g.Go(func() error {
			records, err := s.results.Find(gctx, q)
			if err != nil {
				return fmt.Errorf("identity %q: %w", identity, err)
			}
			all := make([]model.AxisScores, len(records))
			for j, rec := range records {
				all[j] = rec.Scores
			}
			samples[i] = identitySample{count: len(all), mean: meanScores(all)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := &model.IdentityAverages{
		Averages:   make(map[string]model.AxisScores),
		ComputedAt: time.Now().UTC(),
	}
	for i, identity := range identities {
		sample := samples[i]
		if sample.count <= s.cfg.MinResults {
			s.logger.Debug("identity below sample threshold",
				zap.String("identity", identity),
				zap.Int("count", sample.count),
				zap.Int("min_results", s.cfg.MinResults),
			)
			continue
		}
		out.Averages[identity] = sample.mean
	}

	span.SetAttributes(
		attribute.Int("identities.considered", len(identities)),
		attribute.Int("identities.published", len(out.Averages)),
	)
	return out, nil
}

// Publish stores the table and refreshes the cache. A cache failure is
// logged but does not fail the publish.
func (s *IdentityAverageService) Publish(ctx context.Context, averages *model.IdentityAverages) error {
	if err := s.repo.Save(ctx, averages); err != nil {
		return fmt.Errorf("publish identity averages: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetAverages(ctx, averages); err != nil {
			s.logger.Warn("failed to refresh identity averages cache", zap.Error(err))
		}
	}
	return nil
}

// Run computes and publishes in one step.
func (s *IdentityAverageService) Run(ctx context.Context) (*model.IdentityAverages, error) {
	averages, err := s.Compute(ctx)
	if err == nil {
		err = s.Publish(ctx, averages)
	}
	if err != nil {
		s.metrics.RecordAveragesRun(metrics.StatusError, 0)
		return nil, err
	}

	s.metrics.RecordAveragesRun(metrics.StatusOK, len(averages.Averages))
	s.logger.Info("identity averages published", zap.Int("identities", len(averages.Averages)))
	return averages, nil
}
