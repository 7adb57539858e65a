// Package app builds the storage, cache, reference data and service graph
// shared by the server and the job runner.
package app

import (
	"context"
	"errors"
	"fmt"
	"polcomp/internal/cache"
	"polcomp/internal/config"
	"polcomp/internal/metrics"
	"polcomp/internal/refdata"
	"polcomp/internal/repository"
	"polcomp/internal/service"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	RefData  *refdata.Provider
	Results  repository.ResultRepo
	Averages repository.AveragesRepo
	Cache    cache.AnalyticsCache

	// Mongo is set only for the mongo store driver.
	Mongo *mongo.Database

	Submissions      *service.SubmissionService
	Datasets         *service.DatasetService
	Matches          *service.MatchService
	IdentityAverages *service.IdentityAverageService

	closers []func(context.Context) error
}

// New connects every backend the configuration selects and wires the services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)

	if err := a.openStore(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	questions, err := a.questionSource()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.RefData = refdata.NewProvider(questions, cfg.RefDataPath(cfg.RefData.DemographicsFile), logger)

	a.openCache(ctx)

	a.Submissions = service.NewSubmissionService(a.Results, a.RefData, a.Metrics, logger)
	a.Datasets = service.NewDatasetService(a.Results, a.RefData, a.Cache, a.Metrics, logger, service.DatasetConfig{
		MaxLimit:      cfg.Data.MaxLimit,
		MaxFiltersets: cfg.Data.MaxFiltersets,
		Concurrency:   cfg.Data.Concurrency,
	})
	a.Matches = service.NewMatchService(a.Averages, a.Cache, a.Metrics, logger)
	a.IdentityAverages = service.NewIdentityAverageService(a.Results, a.RefData, a.Averages, a.Cache, a.Metrics, logger, service.IdentityConfig{
		MinResults:  cfg.Jobs.MinResults,
		SampleCap:   cfg.Jobs.SampleCap,
		WindowStart: cfg.WindowStart(),
		Concurrency: cfg.Jobs.Concurrency,
	})

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	var averages repository.MultiAveragesRepo

	switch cfg.Store.Driver {
	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Store.MongoURI))
		if err != nil {
			return fmt.Errorf("connect to MongoDB: %w", err)
		}
		a.closers = append(a.closers, client.Disconnect)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			return fmt.Errorf("ping MongoDB: %w", err)
		}
		a.Logger.Info("connected to MongoDB", zap.String("database", cfg.Store.MongoDB))

		a.Mongo = client.Database(cfg.Store.MongoDB)
		a.Results = repository.NewMongoResultRepo(a.Mongo, a.Logger)
		averages = append(averages, repository.NewMongoAveragesRepo(a.Mongo))

	case "sqlite":
		db, err := repository.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		a.Logger.Info("opened SQLite store", zap.String("path", cfg.Store.SQLitePath))

		a.Results = repository.NewSQLiteResultRepo(db)
		averages = append(averages, repository.NewSQLiteAveragesRepo(db))

	case "memory":
		a.Logger.Warn("using in-memory store; results are lost on exit")
		a.Results = repository.NewMemoryResultRepo()

	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if path := cfg.RefDataPath(cfg.RefData.AveragesFile); path != "" {
		averages = append(averages, repository.NewFileAveragesRepo(path))
	}
	if len(averages) == 0 {
		return errors.New("no identity averages store configured")
	}
	a.Averages = averages
	return nil
}

func (a *App) questionSource() (refdata.QuestionSource, error) {
	if a.Config.RefData.QuestionSource == "mongo" {
		if a.Mongo == nil {
			return nil, errors.New("question_source mongo requires the mongo store driver")
		}
		return repository.NewQuestionRepo(a.Mongo), nil
	}
	return refdata.FileQuestions{Path: a.Config.RefDataPath(a.Config.RefData.QuestionsFile)}, nil
}

// openCache connects Redis when configured. An unreachable Redis disables
// caching instead of failing startup.
func (a *App) openCache(ctx context.Context) {
	addr := a.Config.Redis.Addr
	if addr == "" {
		return
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		a.Logger.Warn("Redis unreachable, caching disabled", zap.String("addr", addr), zap.Error(err))
		rdb.Close()
		return
	}
	a.Logger.Info("connected to Redis", zap.String("addr", addr))

	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	a.Cache = cache.NewAnalyticsCache(rdb, a.Config.Redis.AveragesTTL, a.Config.Redis.CountsTTL)
}

// WatchRefData invalidates cached reference data when its files change. It
// blocks until ctx is cancelled.
func (a *App) WatchRefData(ctx context.Context) error {
	cfg := a.Config
	paths := []string{cfg.RefDataPath(cfg.RefData.DemographicsFile)}
	if cfg.RefData.QuestionSource == "file" {
		paths = append(paths, cfg.RefDataPath(cfg.RefData.QuestionsFile))
	}
	return a.RefData.Watch(ctx, paths...)
}

// Close releases every connection in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
