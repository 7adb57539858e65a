// Package workflow runs the identity-average job as a Temporal workflow so it
// can be scheduled with a cron expression and retried by the server.
package workflow

import (
	"context"
	"errors"
	"polcomp/internal/model"
	"sort"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// IdentityAveragesWorkflowID is the fixed id of the scheduled run, so only one
// cron schedule exists per namespace.
const IdentityAveragesWorkflowID = "polcomp-identity-averages"

// AveragesSummary is the workflow result.
type AveragesSummary struct {
	Identities []string  `json:"identities"`
	ComputedAt time.Time `json:"computed_at"`
}

// AveragesRunner computes and publishes the identity-average table.
// *service.IdentityAverageService implements it.
type AveragesRunner interface {
	Run(ctx context.Context) (*model.IdentityAverages, error)
}

// Activities hosts the job's Temporal activities.
type Activities struct {
	runner AveragesRunner
}

// NewActivities creates activities backed by runner.
func NewActivities(runner AveragesRunner) *Activities {
	return &Activities{runner: runner}
}

// ComputeAndPublishAverages runs the job once. Request errors are not
// retried; storage and reference data faults are.
func (a *Activities) ComputeAndPublishAverages(ctx context.Context) (*AveragesSummary, error) {
	averages, err := a.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			return nil, temporal.NewNonRetryableApplicationError("identity averages failed", "Validation", err)
		}
		return nil, err
	}

	summary := &AveragesSummary{ComputedAt: averages.ComputedAt}
	for identity := range averages.Averages {
		summary.Identities = append(summary.Identities, identity)
	}
	sort.Strings(summary.Identities)
	return summary, nil
}

// IdentityAveragesWorkflow runs ComputeAndPublishAverages with retries.
func IdentityAveragesWorkflow(ctx workflow.Context) (*AveragesSummary, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "identity-averages.v", workflow.DefaultVersion, currentVersion)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Minute,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var a *Activities
	var summary AveragesSummary
	if err := workflow.ExecuteActivity(ctx, a.ComputeAndPublishAverages).Get(ctx, &summary); err != nil {
		return nil, err
	}

	workflow.GetLogger(ctx).Info("identity averages published", "identities", len(summary.Identities))
	return &summary, nil
}

// StartOptions returns the options for a cron-scheduled run on taskQueue.
// An empty cron starts a single run.
func StartOptions(taskQueue, cron string) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:           IdentityAveragesWorkflowID,
		TaskQueue:    taskQueue,
		CronSchedule: cron,
	}
}
