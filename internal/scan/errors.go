package scan

import (
	"errors"
	"fmt"
)

// Stage names a fatal stage of the pipeline.
type Stage string

const (
	StageEmbedding Stage = "embed"
	StageStoring   Stage = "store"
)

var (
	// ErrRootNotFound is returned when the scan root is missing or is not
	// a directory.
	ErrRootNotFound = errors.New("scan root not found")
	// ErrCanceled is returned when the context is canceled while files are
	// being scanned. It wraps the context's error.
	ErrCanceled = errors.New("scan canceled")
)

// StageError is a fatal failure of the embed or store stage. No partial
// result is returned with it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// canceled wraps cause so that both errors.Is(err, ErrCanceled) and
// errors.Is(err, context.Canceled) hold.
func canceled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, cause)
}
