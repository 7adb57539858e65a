// Package worker registers the job workflows and activities with a Temporal worker.
package worker

import (
	"polcomp/internal/workflow"

	sdkworker "go.temporal.io/sdk/worker"
)

// Registry is the part of a Temporal worker RegisterAll needs. The test
// workflow environment implements it too.
type Registry interface {
	RegisterWorkflow(w interface{})
	RegisterActivity(a interface{})
}

var _ Registry = (sdkworker.Worker)(nil)

// RegisterAll registers every workflow and activity. Call it once before the
// worker starts.
func RegisterAll(w Registry, runner workflow.AveragesRunner) {
	w.RegisterWorkflow(workflow.IdentityAveragesWorkflow)
	w.RegisterActivity(workflow.NewActivities(runner))
}
