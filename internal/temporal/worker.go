package temporal

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker creates and starts a Temporal worker.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(ScanWorkflow)
	w.RegisterActivity(ScanActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// WorkflowID is stable per root, so a root is scanned by at most one
// running workflow at a time.
func WorkflowID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "sherpa-scan-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(path))).String()
}

// Submit starts ScanWorkflow for input on taskQueue.
func Submit(ctx context.Context, c client.Client, taskQueue string, input ScanInput) (client.WorkflowRun, error) {
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(input.Path),
		TaskQueue: taskQueue,
	}, ScanWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("starting scan workflow: %w", err)
	}
	return run, nil
}
