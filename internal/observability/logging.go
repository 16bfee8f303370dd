package observability

import (
	"io"
	"log/slog"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// LogConfig configures the process logger.
type LogConfig struct {
	// Verbosity: 0 info, 1 debug, 2 or more debug with caller.
	Verbosity int
	// Quiet raises the level to warnings.
	Quiet bool
	JSON  bool
}

// NewLogger returns a slog logger backed by a charm log handler.
func NewLogger(w io.Writer, cfg LogConfig) *slog.Logger {
	level := charmlog.InfoLevel
	switch {
	case cfg.Quiet:
		level = charmlog.WarnLevel
	case cfg.Verbosity >= 1:
		level = charmlog.DebugLevel
	}

	opts := charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		ReportCaller:    cfg.Verbosity >= 2,
	}
	if cfg.JSON {
		opts.Formatter = charmlog.JSONFormatter
	}
	return slog.New(charmlog.NewWithOptions(w, opts))
}
