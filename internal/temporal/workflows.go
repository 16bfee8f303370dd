package temporal

import (
	"fmt"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Error types reported by ScanActivity as application errors.
const (
	// ErrTypeInvalidInput marks configuration errors and missing roots.
	// They are never retried.
	ErrTypeInvalidInput = "InvalidInput"
	// ErrTypeStage marks embed or store failures. They are retried.
	ErrTypeStage = "StageFailed"
)

const defaultMaxAttempts = 3

// ScanInput holds the workflow parameters. Empty fields keep the worker's
// configured values.
type ScanInput struct {
	Path           string
	Collection     string
	ChunkSizeLimit int
	Orphans        string
	Extensions     []string
	Exclude        []string
	Gitignore      bool
	LenientParsing bool

	// MaxAttempts bounds retries of the whole scan. 0 means 3.
	MaxAttempts int32
}

// ScanOutput holds the workflow result.
type ScanOutput struct {
	Root                string
	Collection          string
	Backend             string
	ChunksProcessed     int
	EmbeddingsGenerated int
	FilesScanned        int
	FilesSkipped        int
	FilesFailed         int
	Languages           map[string]int
	Duration            time.Duration
}

// ScanWorkflow runs one scan as an activity. A scan that fails in its
// embed or store stage is retried from the start with exponential backoff.
func ScanWorkflow(ctx workflow.Context, input ScanInput) (*ScanOutput, error) {
	attempts := input.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:        10 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        5 * time.Minute,
			MaximumAttempts:        attempts,
			NonRetryableErrorTypes: []string{ErrTypeInvalidInput},
		},
	})

	logger := workflow.GetLogger(ctx)
	logger.Info("scan started", "path", input.Path)

	var out ScanOutput
	if err := workflow.ExecuteActivity(ctx, ScanActivity, input).Get(ctx, &out); err != nil {
		return nil, fmt.Errorf("scan %s: %w", input.Path, err)
	}
	logger.Info("scan finished", "path", input.Path, "chunks", out.ChunksProcessed, "failed", out.FilesFailed)
	return &out, nil
}
