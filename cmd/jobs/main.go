package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"polcomp/internal/app"
	"polcomp/internal/config"
	"polcomp/internal/logging"
	"polcomp/internal/worker"
	"polcomp/internal/workflow"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

// Exit codes.
const (
	exitMissingArgs = 1
	exitUnknownJob  = 2
	exitJobFailed   = 3
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// job is a one-shot batch task run against the configured backends.
type job struct {
	description string
	run         func(ctx context.Context, a *app.App) error
}

var jobs = map[string]job{
	"avg-identities": {
		description: "compute and publish the per-identity average scores",
		run: func(ctx context.Context, a *app.App) error {
			averages, err := a.IdentityAverages.Run(ctx)
			if err != nil {
				return err
			}
			a.Logger.Info("identity averages published",
				zap.Int("identities", len(averages.Averages)),
				zap.Time("computed_at", averages.ComputedAt),
			)
			return nil
		},
	},
}

// jobAliases keeps older job names working in existing cron entries.
var jobAliases = map[string]string{
	"avg_identities": "avg-identities",
}

func lookupJob(name string) (job, bool) {
	if canonical, ok := jobAliases[name]; ok {
		name = canonical
	}
	j, ok := jobs[name]
	return j, ok
}

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jobs [job]",
	Short: "Run polcomp batch jobs",
	Long: `Runs a named batch job once against the configured store.

Use "jobs list" to see the available jobs, "jobs worker" to host them on a
Temporal task queue and "jobs schedule" to start the monthly cron run.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runJob,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range jobNames() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", name, jobs[name].description)
		}
		return nil
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Host the job workflows on the Temporal task queue",
	RunE:  runWorker,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Start the cron-scheduled identity averages workflow",
	RunE:  runSchedule,
}

var scheduleCron string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("POLCOMP_CONFIG"), "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression, defaults to temporal.cron from config")

	rootCmd.AddCommand(listCmd, workerCmd, scheduleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitMissingArgs)
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return &exitError{exitMissingArgs, fmt.Errorf("expected exactly one job name, available: %v", jobNames())}
	}
	j, ok := lookupJob(args[0])
	if !ok {
		return &exitError{exitUnknownJob, fmt.Errorf("unknown job %q, available: %v", args[0], jobNames())}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return &exitError{exitJobFailed, err}
	}
	defer a.Close(context.Background())

	logger.Info("running job", zap.String("job", args[0]))
	if err := j.run(ctx, a); err != nil {
		logger.Error("job failed", zap.String("job", args[0]), zap.Error(err))
		return &exitError{exitJobFailed, err}
	}
	return nil
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	c, err := dialTemporal()
	if err != nil {
		return err
	}
	defer c.Close()

	w := sdkworker.New(c, cfg.Temporal.TaskQueue, sdkworker.Options{})
	worker.RegisterAll(w, a.IdentityAverages)

	logger.Info("temporal worker starting",
		zap.String("host", cfg.Temporal.HostPort),
		zap.String("task_queue", cfg.Temporal.TaskQueue),
	)
	interrupt := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(interrupt)
	}()
	return w.Run(interrupt)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cron := scheduleCron
	if cron == "" {
		cron = cfg.Temporal.Cron
	}

	c, err := dialTemporal()
	if err != nil {
		return err
	}
	defer c.Close()

	run, err := c.ExecuteWorkflow(cmd.Context(), workflow.StartOptions(cfg.Temporal.TaskQueue, cron), workflow.IdentityAveragesWorkflow)
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	logger.Info("identity averages scheduled",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
		zap.String("cron", cron),
	)
	return nil
}

func dialTemporal() (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to temporal at %s: %w", cfg.Temporal.HostPort, err)
	}
	return c, nil
}

func jobNames() []string {
	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
