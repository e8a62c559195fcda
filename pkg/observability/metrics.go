package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRecordsTotal    = "seqstat.records.total"
	metricGroupsTotal     = "seqstat.groups.total"
	metricGroupDuration   = "seqstat.group.duration.seconds"
	metricGroupsInflight  = "seqstat.groups.inflight"
	metricMergesTotal     = "seqstat.merges.total"
	metricMergeErrorTotal = "seqstat.merge.errors.total"

	attrStatus = "status"
	attrStage  = "stage"
	attrKind   = "kind"

	// StatusOK labels a group that produced its report.
	StatusOK = "ok"
	// StatusFailed labels a group that failed at some stage.
	StatusFailed = "failed"
)

// durationBucketBoundaries covers 10ms to 1h: a group is one or more files of up to
// hundreds of millions of reads.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600}

// BatchMetrics holds the OTel instruments for batch runs.
type BatchMetrics struct {
	recordsTotal   metric.Int64Counter
	groupsTotal    metric.Int64Counter
	groupDuration  metric.Float64Histogram
	groupsInflight metric.Int64UpDownCounter
	mergesTotal    metric.Int64Counter
	mergeErrors    metric.Int64Counter
}

// GroupStats describes one finished file group.
type GroupStats struct {
	// Status is StatusOK or StatusFailed.
	Status string

	// Stage names where a failed group stopped. Empty for StatusOK.
	Stage string

	Records  int64
	Duration time.Duration
}

// NewBatchMetrics creates batch metric instruments from the given meter.
func NewBatchMetrics(mt metric.Meter) (*BatchMetrics, error) {
	in := &instruments{meter: mt}

	bm := &BatchMetrics{
		recordsTotal:   in.count(metricRecordsTotal, "Total records analysed", "{record}"),
		groupsTotal:    in.count(metricGroupsTotal, "File groups finished by status", "{group}"),
		groupDuration:  in.seconds(metricGroupDuration, "Per-group analysis duration in seconds"),
		groupsInflight: in.inflight(metricGroupsInflight, "File groups being analysed", "{group}"),
		mergesTotal:    in.count(metricMergesTotal, "Module merges into the aggregate by kind", "{merge}"),
		mergeErrors:    in.count(metricMergeErrorTotal, "Failed module merges by kind", "{error}"),
	}

	if in.err != nil {
		return nil, in.err
	}

	return bm, nil
}

// instruments creates instruments on one meter and keeps the first creation error.
type instruments struct {
	meter metric.Meter
	err   error
}

func (in *instruments) count(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.keep(name, err)

	return c
}

func (in *instruments) inflight(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.keep(name, err)

	return c
}

// seconds creates a duration histogram with the group duration buckets.
func (in *instruments) seconds(name, desc string) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	in.keep(name, err)

	return h
}

func (in *instruments) keep(name string, err error) {
	if err != nil && in.err == nil {
		in.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// RecordGroup records one finished group.
// Safe to call on a nil receiver (no-op).
func (bm *BatchMetrics) RecordGroup(ctx context.Context, stats GroupStats) {
	if bm == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(attrStatus, stats.Status)}
	if stats.Stage != "" {
		attrs = append(attrs, attribute.String(attrStage, stats.Stage))
	}

	bm.groupsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	bm.recordsTotal.Add(ctx, stats.Records)
	bm.groupDuration.Record(ctx, stats.Duration.Seconds(),
		metric.WithAttributes(attribute.String(attrStatus, stats.Status)))
}

// TrackGroup increments the in-flight gauge and returns a function to decrement it.
// Safe to call on a nil receiver.
func (bm *BatchMetrics) TrackGroup(ctx context.Context) func() {
	if bm == nil {
		return func() {}
	}

	bm.groupsInflight.Add(ctx, 1)

	return func() {
		bm.groupsInflight.Add(ctx, -1)
	}
}

// RecordMerge records one module merge into the aggregate.
// Safe to call on a nil receiver (no-op).
func (bm *BatchMetrics) RecordMerge(ctx context.Context, kind string, err error) {
	if bm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrKind, kind))
	if err != nil {
		bm.mergeErrors.Add(ctx, 1, attrs)

		return
	}

	bm.mergesTotal.Add(ctx, 1, attrs)
}
