package workflow

import (
	"context"
	"errors"
	"polcomp/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type stubRunner struct {
	averages *model.IdentityAverages
	err      error
	calls    int
}

func (s *stubRunner) Run(ctx context.Context) (*model.IdentityAverages, error) {
	s.calls++
	return s.averages, s.err
}

func TestComputeAndPublishAverages(t *testing.T) {
	computed := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
	runner := &stubRunner{averages: &model.IdentityAverages{
		Averages: map[string]model.AxisScores{
			"Nationalist":               {},
			"Feminist":                  {},
			model.AverageResultIdentity: {},
		},
		ComputedAt: computed,
	}}

	summary, err := NewActivities(runner).ComputeAndPublishAverages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Average Result", "Feminist", "Nationalist"}, summary.Identities)
	assert.Equal(t, computed, summary.ComputedAt)
}

func TestComputeAndPublishAveragesErrors(t *testing.T) {
	t.Run("validation is not retried", func(t *testing.T) {
		runner := &stubRunner{err: &model.ValidationError{Entity: "config", Errors: []string{"bad"}}}
		_, err := NewActivities(runner).ComputeAndPublishAverages(context.Background())

		var appErr *temporal.ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.True(t, appErr.NonRetryable())
		assert.Equal(t, "Validation", appErr.Type())
	})

	t.Run("storage errors pass through", func(t *testing.T) {
		runner := &stubRunner{err: model.NewStorageError("save identity averages", errors.New("timeout"))}
		_, err := NewActivities(runner).ComputeAndPublishAverages(context.Background())
		assert.True(t, errors.Is(err, model.ErrStorage))
	})
}

func TestIdentityAveragesWorkflow(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}

	t.Run("returns the activity summary", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		defer env.AssertExpectations(t)

		var a *Activities
		env.RegisterActivity(&Activities{})
		want := &AveragesSummary{Identities: []string{"Feminist"}, ComputedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
		env.OnActivity(a.ComputeAndPublishAverages, mock.Anything).Return(want, nil).Once()

		env.ExecuteWorkflow(IdentityAveragesWorkflow)

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var got AveragesSummary
		require.NoError(t, env.GetWorkflowResult(&got))
		assert.Equal(t, want.Identities, got.Identities)
		assert.True(t, want.ComputedAt.Equal(got.ComputedAt))
	})

	t.Run("retries transient failures", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		defer env.AssertExpectations(t)

		var a *Activities
		env.RegisterActivity(&Activities{})
		env.OnActivity(a.ComputeAndPublishAverages, mock.Anything).
			Return(nil, errors.New("mongo unavailable")).Once()
		env.OnActivity(a.ComputeAndPublishAverages, mock.Anything).
			Return(&AveragesSummary{Identities: []string{"Average Result"}}, nil).Once()

		env.ExecuteWorkflow(IdentityAveragesWorkflow)

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())
	})

	t.Run("surfaces non-retryable failures", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()

		var a *Activities
		env.RegisterActivity(&Activities{})
		env.OnActivity(a.ComputeAndPublishAverages, mock.Anything).
			Return(nil, temporal.NewNonRetryableApplicationError("identity averages failed", "Validation", nil))

		env.ExecuteWorkflow(IdentityAveragesWorkflow)

		require.True(t, env.IsWorkflowCompleted())
		err := env.GetWorkflowError()
		require.Error(t, err)
		var appErr *temporal.ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Validation", appErr.Type())
	})
}

func TestStartOptions(t *testing.T) {
	opts := StartOptions("polcomp-jobs", "0 3 1 * *")
	assert.Equal(t, IdentityAveragesWorkflowID, opts.ID)
	assert.Equal(t, "polcomp-jobs", opts.TaskQueue)
	assert.Equal(t, "0 3 1 * *", opts.CronSchedule)
}
