package refdata

import (
	"context"
	"os"
	"path/filepath"
	"polcomp/internal/model"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Provider serves reference data with an in-memory cache. Loads that fail
// are not cached, so the next call retries.
type Provider struct {
	questions  QuestionSource
	schemaPath string
	logger     *zap.Logger

	mu      sync.RWMutex
	schema  *Schema
	qs      []model.Question
	weights model.WeightTable
}

// NewProvider creates a provider reading questions from src and the
// demographics schema from schemaPath.
func NewProvider(src QuestionSource, schemaPath string, logger *zap.Logger) *Provider {
	return &Provider{
		questions:  src,
		schemaPath: schemaPath,
		logger:     logger,
	}
}

// Schema returns the demographics schema.
func (p *Provider) Schema(ctx context.Context) (*Schema, error) {
	p.mu.RLock()
	s := p.schema
	p.mu.RUnlock()
	if s != nil {
		return s, nil
	}

	data, err := os.ReadFile(p.schemaPath)
	if err != nil {
		return nil, &model.ReferenceDataError{Resource: "demographics schema", Err: err}
	}
	s, err = ParseSchema(data)
	if err != nil {
		return nil, &model.ReferenceDataError{Resource: "demographics schema", Err: err}
	}

	p.mu.Lock()
	p.schema = s
	p.mu.Unlock()
	return s, nil
}

// Questions returns the question bank ordered by id.
func (p *Provider) Questions(ctx context.Context) ([]model.Question, error) {
	qs, _, err := p.loadQuestions(ctx)
	return qs, err
}

// Weights returns the weight table built from the question bank.
func (p *Provider) Weights(ctx context.Context) (model.WeightTable, error) {
	_, weights, err := p.loadQuestions(ctx)
	return weights, err
}

func (p *Provider) loadQuestions(ctx context.Context) ([]model.Question, model.WeightTable, error) {
	p.mu.RLock()
	qs, weights := p.qs, p.weights
	p.mu.RUnlock()
	if weights != nil {
		return qs, weights, nil
	}

	qs, err := p.questions.ListQuestions(ctx)
	if err == nil {
		err = checkQuestions(qs)
	}
	if err != nil {
		return nil, nil, &model.ReferenceDataError{Resource: "question bank", Err: err}
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	weights = model.BuildWeightTable(qs)

	p.mu.Lock()
	p.qs = qs
	p.weights = weights
	p.mu.Unlock()
	return qs, weights, nil
}

// Invalidate drops every cached value.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.schema = nil
	p.qs = nil
	p.weights = nil
	p.mu.Unlock()
}

// Watch invalidates the cache whenever one of paths changes. It blocks until
// ctx is cancelled. Directories are watched so editors that replace files by
// rename are seen too.
func (p *Provider) Watch(ctx context.Context, paths ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	targets := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, path := range paths {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(event.Name)
			if _, ok := targets[abs]; !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			p.logger.Info("reference data changed, reloading",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()))
			p.Invalidate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("reference data watcher error", zap.Error(err))
		}
	}
}
