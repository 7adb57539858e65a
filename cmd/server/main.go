package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"polcomp/internal/app"
	"polcomp/internal/config"
	"polcomp/internal/logging"
	"polcomp/internal/transport/rest"
	"polcomp/internal/transport/rest/middleware"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("POLCOMP_CONFIG"), "path to YAML config file")
	trustProxy := flag.Bool("trust-proxy", false, "identify clients by X-Forwarded-For")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close(context.Background())

	if cfg.RefData.Watch {
		go func() {
			if err := a.WatchRefData(ctx); err != nil {
				logger.Error("reference data watcher stopped", zap.Error(err))
			}
		}()
	}

	// Create router with container
	container := &rest.Container{
		SubmissionService: a.Submissions,
		DatasetService:    a.Datasets,
		MatchService:      a.Matches,
		SubmitLimiter:     middleware.NewRateLimiter(cfg.HTTP.SubmitRatePerMin, cfg.HTTP.SubmitBurst, *trustProxy),
		Gatherer:          a.Registry,
		CORSOrigins:       cfg.HTTP.CORSAllowedOrigins,
		Logger:            logger,
	}

	router := rest.NewRouter(container)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("cache", a.Cache != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ListenAndServe", zap.Error(err))
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
