// Package analysis drives one sequence source through an ordered list of modules.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/seqstat/pkg/modules"
	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

// ErrModulePanic is reported when a module panics while processing a record.
var ErrModulePanic = errors.New("module panicked")

// Default progress cadence.
const (
	DefaultUpdateInterval = 1000
	DefaultPercentStep    = 5
	DefaultRecordStep     = 100_000
)

const tracerName = "seqstat"

// Listener receives lifecycle notifications for one source.
// Exactly one of Completed or Failed is delivered per run.
type Listener interface {
	Started(src sequence.Source)
	Updated(src sequence.Source, processed int64, percent int)
	Completed(src sequence.Source, results []modules.Module)
	Failed(src sequence.Source, err error)
}

// Runner feeds every record of a source to every module, in order.
type Runner struct {
	Source    sequence.Source
	Listeners []Listener

	// UpdateInterval is how many records pass between progress checks.
	UpdateInterval int64

	// PercentStep is the minimum percent increase between two Updated notifications.
	PercentStep int

	// RecordStep forces an Updated notification once this many records have passed since
	// the last one, even when the percent estimate has not moved. Zero disables it.
	RecordStep int64

	// Tracer is the OTel tracer for the run span. When nil, falls back to otel.Tracer("seqstat").
	Tracer trace.Tracer

	processed int64
}

// NewRunner creates a Runner with the default progress cadence.
func NewRunner(src sequence.Source, listeners ...Listener) *Runner {
	return &Runner{
		Source:         src,
		Listeners:      listeners,
		UpdateInterval: DefaultUpdateInterval,
		PercentStep:    DefaultPercentStep,
		RecordStep:     DefaultRecordStep,
	}
}

// AddListener registers another listener.
func (runner *Runner) AddListener(l Listener) {
	runner.Listeners = append(runner.Listeners, l)
}

// Processed returns the number of records consumed by the last Run, filtered ones included.
func (runner *Runner) Processed() int64 {
	return runner.processed
}

func (runner *Runner) tracer() trace.Tracer {
	if runner.Tracer != nil {
		return runner.Tracer
	}

	return otel.Tracer(tracerName)
}

// Run consumes the source to exhaustion and notifies listeners. The returned error is the
// one passed to Failed, or nil after Completed.
func (runner *Runner) Run(ctx context.Context, mods []modules.Module) error {
	src := runner.Source

	_, span := runner.tracer().Start(ctx, "analysis.run",
		trace.WithAttributes(attribute.String("analysis.source", src.Name())))
	defer span.End()

	for _, m := range mods {
		if aware, ok := m.(modules.SourceAware); ok {
			aware.BindSource(src.Name())
		}
	}

	for _, l := range runner.Listeners {
		l.Started(src)
	}

	processed, err := runner.consume(mods)
	runner.processed = processed

	span.SetAttributes(attribute.Int64("analysis.records", processed))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")

		for _, l := range runner.Listeners {
			l.Failed(src, err)
		}

		return err
	}

	for _, l := range runner.Listeners {
		l.Completed(src, mods)
	}

	return nil
}

func (runner *Runner) consume(mods []modules.Module) (processed int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrModulePanic, r)
		}
	}()

	interval := runner.UpdateInterval
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}

	var (
		lastPercent int
		lastEmitted int64
	)

	err = sequence.Drain(runner.Source, func(rec *sequence.Record) {
		for _, m := range mods {
			if rec.Filtered && m.IgnoresFiltered() {
				continue
			}

			m.Update(rec)
		}

		processed++

		if processed%interval == 0 {
			lastPercent, lastEmitted = runner.progress(processed, lastPercent, lastEmitted)
		}
	})

	return processed, err
}

// progress emits Updated when the estimate has moved at least PercentStep past the last
// emitted value, or when RecordStep records have passed since the last emission.
// Emitted percentages never decrease.
func (runner *Runner) progress(processed int64, last int, lastEmitted int64) (int, int64) {
	pct := runner.Source.PercentComplete()

	moved := pct >= last+runner.PercentStep
	due := runner.RecordStep > 0 && processed-lastEmitted >= runner.RecordStep

	if !moved && !due {
		return last, lastEmitted
	}

	pct = max(pct, last)

	for _, l := range runner.Listeners {
		l.Updated(runner.Source, processed, pct)
	}

	return pct, processed
}
