// Package modules defines the analysis modules fed one record at a time and the
// aggregatable variant that can absorb another instance's accumulated state.
package modules

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

// Kind is the stable type tag of a module. It keys aggregation sessions.
type Kind string

// Module kinds, in default report order.
const (
	KindBasicStats         Kind = "basic_stats"
	KindPerBaseQuality     Kind = "per_base_quality"
	KindPerSequenceQuality Kind = "per_sequence_quality"
	KindPerBaseContent     Kind = "per_base_sequence_content"
	KindPerBaseGC          Kind = "per_base_gc"
	KindPerSequenceGC      Kind = "per_sequence_gc"
	KindNContent           Kind = "n_content"
	KindLengthDistribution Kind = "length_distribution"
)

// Sentinel errors for module operations.
var (
	// ErrKindMismatch is returned when merging modules of different kinds.
	ErrKindMismatch = errors.New("module kind mismatch")
	// ErrSelfMerge is returned when a module is merged into itself.
	ErrSelfMerge = errors.New("module merged into itself")
	// ErrNotAggregatable is returned when a factory produces a module without merge support.
	ErrNotAggregatable = errors.New("module is not aggregatable")
)

// Status is the verdict a module attaches to its result.
type Status string

// Result statuses.
const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Result is the rendered output of a module. It is opaque to the engine and consumed by
// report writers: Columns/Rows for tabular output, Values for structured output.
type Result struct {
	Kind    Kind           `json:"kind"    yaml:"kind"`
	Name    string         `json:"name"    yaml:"name"`
	Status  Status         `json:"status"  yaml:"status"`
	Columns []string       `json:"columns" yaml:"columns"`
	Rows    [][]string     `json:"rows"    yaml:"rows"`
	Values  map[string]any `json:"values"  yaml:"values"`
}

// Module is a stateful accumulator over a record stream.
type Module interface {
	Kind() Kind
	Name() string
	Description() string

	// IgnoresFiltered reports whether filtered records must not be passed to Update.
	IgnoresFiltered() bool

	// Update folds one record into the module state.
	Update(rec *sequence.Record)

	// Reset returns the module to its zero state.
	Reset()

	// Render produces the module result from the current state.
	Render() Result
}

// Aggregatable is a module that can merge another same-kind module's state into its own.
// MergeFrom is associative and commutative, and safe to call concurrently on one target.
// Update takes no lock: it must not run on a target or source while a merge involving
// that module is in progress.
type Aggregatable interface {
	Module

	MergeFrom(other Module) error
}

// checkMerge validates a merge source and returns it as the concrete type T.
func checkMerge[T Module](target T, other Module) (T, error) {
	var zero T

	if other == nil {
		return zero, fmt.Errorf("%w: nil source for %s", ErrKindMismatch, target.Kind())
	}

	if other.Kind() != target.Kind() {
		return zero, fmt.Errorf("%w: cannot merge %s into %s", ErrKindMismatch, other.Kind(), target.Kind())
	}

	src, ok := other.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s has unexpected type %T", ErrKindMismatch, other.Kind(), other)
	}

	if Module(src) == Module(target) {
		return zero, fmt.Errorf("%w: %s", ErrSelfMerge, target.Kind())
	}

	return src, nil
}
