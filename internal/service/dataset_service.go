package service

import (
	"context"
	"fmt"
	"polcomp/internal/cache"
	"polcomp/internal/filter"
	"polcomp/internal/metrics"
	"polcomp/internal/model"
	"polcomp/internal/refdata"
	"polcomp/internal/repository"
	"polcomp/internal/scoring"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReferenceData is the read-only reference data the services consume.
// *refdata.Provider implements it.
type ReferenceData interface {
	Schema(ctx context.Context) (*refdata.Schema, error)
	Questions(ctx context.Context) ([]model.Question, error)
	Weights(ctx context.Context) (model.WeightTable, error)
}

// DatasetConfig bounds filter batches.
type DatasetConfig struct {
	MaxLimit      int
	MaxFiltersets int
	Concurrency   int
}

const (
	kindDatasets = "datasets"
	kindCounts   = "counts"

	respondentLabel = "Your Results"
	respondentColor = "salmon"
)

// DatasetService applies filter batches to the result corpus.
type DatasetService struct {
	results repository.ResultRepo
	refdata ReferenceData
	counts  cache.CountCache
	metrics *metrics.Metrics
	logger  *zap.Logger
	cfg     DatasetConfig

	newSeed func() int64
}

// NewDatasetService creates a dataset service. counts may be nil to disable
// count caching.
func NewDatasetService(
	results repository.ResultRepo,
	refdata ReferenceData,
	counts cache.CountCache,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg DatasetConfig,
) *DatasetService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &DatasetService{
		results: results,
		refdata: refdata,
		counts:  counts,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		newSeed: repository.NewSeed,
	}
}

// ApplyFilterBatch returns one dataset per filterset, in input order. When
// respondent is not nil its own dataset is prepended. If reference data is
// unavailable every dataset comes back empty and no error is returned.
func (s *DatasetService) ApplyFilterBatch(ctx context.Context, batch model.FilterBatch, respondent *model.Respondent) ([]model.Dataset, error) {
	ctx, span := startSpan(ctx, "DatasetService.ApplyFilterBatch",
		attribute.Int("batch.filtersets", len(batch.Filtersets)),
		attribute.String("batch.order", string(batch.Order)))
	defer span.End()

	preds, err := s.prepare(ctx, batch)
	if err != nil {
		return s.failBatch(span, kindDatasets, err)
	}

	if preds == nil {
		return s.degradedDatasets(span, batch, respondent)
	}

	weights, err := s.refdata.Weights(ctx)
	if err != nil {
		s.degrade(ctx, "weights", err)
		return s.degradedDatasets(span, batch, respondent)
	}
	questionIDs := weights.QuestionIDs()

	var own *model.Dataset
	if respondent != nil {
		if err := checkRespondent(respondent, weights); err != nil {
			return s.failBatch(span, kindDatasets, err)
		}
		ds := respondentDataset(respondent, questionIDs)
		own = &ds
	}

	var seed int64
	if batch.Order == model.OrderRandom {
		seed = s.newSeed()
	}

	datasets := make([]model.Dataset, len(batch.Filtersets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, fs := range batch.Filtersets {
		q := repository.ResultQuery{
			MinDate:   batch.MinDate,
			MaxDate:   batch.MaxDate,
			Predicate: preds[i],
			Order:     batch.Order,
			Seed:      seed,
			Limit:     batch.Limit,
		}
		g.Go(func() error {
			fctx, fspan := startSpan(gctx, "DatasetService.filterset",
				attribute.Int("filterset.index", i),
				attribute.String("filterset.label", fs.Label))
			defer fspan.End()

			start := time.Now()
			records, err := s.results.Find(fctx, q)
			if err != nil {
				fspan.SetStatus(codes.Error, err.Error())
				return fmt.Errorf("filterset %d: %w", i, err)
			}

			ds := buildDataset(records, questionIDs)
			labelDataset(&ds, i, fs)
			datasets[i] = ds

			fspan.SetAttributes(attribute.Int("filterset.count", ds.Count))
			s.metrics.RecordFilterset(kindDatasets, time.Since(start), ds.Count)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return s.failBatch(span, kindDatasets, err)
	}

	if own != nil {
		datasets = append([]model.Dataset{*own}, datasets...)
	}
	s.metrics.RecordBatch(kindDatasets, metrics.StatusOK)
	span.SetStatus(codes.Ok, "")
	return datasets, nil
}

// CountFilterBatch returns min(count, limit) for each filterset index using
// the same filtering as ApplyFilterBatch without loading records.
func (s *DatasetService) CountFilterBatch(ctx context.Context, batch model.FilterBatch) (map[int]int, error) {
	ctx, span := startSpan(ctx, "DatasetService.CountFilterBatch",
		attribute.Int("batch.filtersets", len(batch.Filtersets)))
	defer span.End()

	preds, err := s.prepare(ctx, batch)
	if err != nil {
		_, err = s.failBatch(span, kindCounts, err)
		return nil, err
	}
	if preds == nil {
		s.metrics.RecordBatch(kindCounts, metrics.StatusDegraded)
		return zeroCounts(len(batch.Filtersets)), nil
	}

	if s.counts != nil {
		cached, err := s.counts.GetCounts(ctx, batch)
		if err != nil {
			s.logger.Warn("count cache read failed", zap.Error(err))
		} else if cached != nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			s.metrics.RecordBatch(kindCounts, metrics.StatusOK)
			return cached, nil
		}
	}

	results := make([]int, len(batch.Filtersets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i := range batch.Filtersets {
		q := repository.ResultQuery{
			MinDate:   batch.MinDate,
			MaxDate:   batch.MaxDate,
			Predicate: preds[i],
			Limit:     batch.Limit,
		}
		g.Go(func() error {
			start := time.Now()
			n, err := s.results.Count(gctx, q)
			if err != nil {
				return fmt.Errorf("filterset %d: %w", i, err)
			}
			results[i] = n
			s.metrics.RecordFilterset(kindCounts, time.Since(start), n)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_, err = s.failBatch(span, kindCounts, err)
		return nil, err
	}

	counts := make(map[int]int, len(results))
	for i, n := range results {
		counts[i] = n
	}

	if s.counts != nil {
		if err := s.counts.SetCounts(ctx, batch, counts); err != nil {
			s.logger.Warn("count cache write failed", zap.Error(err))
		}
	}

	s.metrics.RecordBatch(kindCounts, metrics.StatusOK)
	span.SetStatus(codes.Ok, "")
	return counts, nil
}

// prepare validates the batch and compiles one predicate per filterset. A nil
// slice with a nil error means the schema is unavailable and the caller
// should degrade.
func (s *DatasetService) prepare(ctx context.Context, batch model.FilterBatch) ([]filter.Predicate, error) {
	if err := batch.Validate(s.cfg.MaxLimit, s.cfg.MaxFiltersets); err != nil {
		return nil, err
	}

	schema, err := s.refdata.Schema(ctx)
	if err != nil {
		s.degrade(ctx, "schema", err)
		return nil, nil
	}

	preds := make([]filter.Predicate, len(batch.Filtersets))
	for i, fs := range batch.Filtersets {
		if err := schema.ValidateFilterset(fs, fmt.Sprintf("filterset[%d]", i)); err != nil {
			return nil, err
		}
		p := filter.Compile(fs)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return preds, nil
}

func (s *DatasetService) degrade(ctx context.Context, resource string, err error) {
	s.logger.Error("reference data unavailable, returning empty datasets",
		zap.String("resource", resource),
		zap.Error(err),
	)
	s.metrics.RecordReferenceFault(resource)
	trace.SpanFromContext(ctx).AddEvent("degraded", trace.WithAttributes(attribute.String("resource", resource)))
}

func (s *DatasetService) failBatch(span trace.Span, kind string, err error) ([]model.Dataset, error) {
	status := metrics.StatusError
	if isClientError(err) {
		status = metrics.StatusInvalid
	}
	s.metrics.RecordBatch(kind, status)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

// degradedDatasets answers a batch without reference data. The respondent's
// scores are still checked. Its answers need the weight table and are not.
func (s *DatasetService) degradedDatasets(span trace.Span, batch model.FilterBatch, respondent *model.Respondent) ([]model.Dataset, error) {
	if respondent != nil {
		if problems := respondent.Scores.Check(); len(problems) > 0 {
			return s.failBatch(span, kindDatasets, &model.ValidationError{Entity: "respondent", Errors: problems})
		}
	}
	s.metrics.RecordBatch(kindDatasets, metrics.StatusDegraded)
	return emptyDatasets(batch, respondent), nil
}

func emptyDatasets(batch model.FilterBatch, respondent *model.Respondent) []model.Dataset {
	var out []model.Dataset
	if respondent != nil {
		out = append(out, respondentDataset(respondent, nil))
	}
	for i, fs := range batch.Filtersets {
		ds := buildDataset(nil, nil)
		labelDataset(&ds, i, fs)
		out = append(out, ds)
	}
	return out
}

func labelDataset(ds *model.Dataset, i int, fs model.Filterset) {
	id := i
	ds.Name = fmt.Sprintf("custom_%d", i)
	ds.Label = fs.Label
	ds.Color = fs.Color
	ds.CustomDataset = true
	ds.CustomID = &id
}

func respondentDataset(r *model.Respondent, questionIDs []int) model.Dataset {
	rec := &model.ResultRecord{Scores: r.Scores, Answers: r.Answers}
	ds := buildDataset([]*model.ResultRecord{rec}, questionIDs)
	ds.Name = model.RespondentDatasetName
	ds.Label = respondentLabel
	ds.Color = respondentColor
	ds.ResultID = r.ResultID
	return ds
}

func checkRespondent(r *model.Respondent, weights model.WeightTable) error {
	if problems := r.Scores.Check(); len(problems) > 0 {
		return &model.ValidationError{Entity: "respondent", Errors: problems}
	}
	return scoring.ValidateAnswers(r.Answers, weights)
}

func zeroCounts(n int) map[int]int {
	counts := make(map[int]int, n)
	for i := 0; i < n; i++ {
		counts[i] = 0
	}
	return counts
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("polcomp/service").Start(ctx, name)
	span.SetAttributes(attrs...)
	return ctx, span
}
