package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// File outcomes recorded on the files counter.
const (
	OutcomeIndexed = "indexed"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Instruments are the scan pipeline's OpenTelemetry instruments.
type Instruments struct {
	files    metric.Int64Counter
	chunks   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewInstruments creates the instruments on meter. A nil meter uses the
// global provider, which is a no-op unless one was installed.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	if meter == nil {
		meter = otel.Meter(TracerName)
	}
	files, err := meter.Int64Counter("sherpa.scan.files",
		metric.WithDescription("Files seen by the scanner, by outcome"),
		metric.WithUnit("{file}"))
	if err != nil {
		return nil, fmt.Errorf("files counter: %w", err)
	}
	chunks, err := meter.Int64Counter("sherpa.scan.chunks",
		metric.WithDescription("Chunks extracted, by language"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, fmt.Errorf("chunks counter: %w", err)
	}
	duration, err := meter.Float64Histogram("sherpa.scan.stage.duration",
		metric.WithDescription("Duration of pipeline stages"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("stage histogram: %w", err)
	}
	return &Instruments{files: files, chunks: chunks, duration: duration}, nil
}

// File records one file outcome. All recording methods are no-ops on a nil
// receiver.
func (i *Instruments) File(ctx context.Context, outcome string) {
	if i == nil {
		return
	}
	i.files.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Chunks records n chunks for a language.
func (i *Instruments) Chunks(ctx context.Context, language string, n int) {
	if i == nil {
		return
	}
	i.chunks.Add(ctx, int64(n), metric.WithAttributes(attribute.String("language", language)))
}

// Stage records how long a stage took and whether it succeeded.
func (i *Instruments) Stage(ctx context.Context, stage string, d time.Duration, err error) {
	if i == nil {
		return
	}
	i.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("success", err == nil),
	))
}
