package processor

import (
	"errors"
	"fmt"
)

// Op names the step of file processing that failed.
type Op string

const (
	OpRead    Op = "read"
	OpDecode  Op = "decode"
	OpParse   Op = "parse"
	OpExtract Op = "extract"
)

var (
	// ErrInvalidUTF8 is returned for files that are not valid UTF-8 text.
	ErrInvalidUTF8 = errors.New("not valid UTF-8")
	// ErrFileTooLarge is returned for files above the processor's size cap.
	ErrFileTooLarge = errors.New("file too large")
)

// FileError is a recoverable failure confined to one file. Callers log it
// and move on.
type FileError struct {
	Path string
	Op   Op
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
