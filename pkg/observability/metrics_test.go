package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/seqstat/pkg/observability"
)

func setupBatchMeter(t *testing.T) (*observability.BatchMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	bm, err := observability.NewBatchMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return bm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}

	return nil
}

func sumByAttr(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64] data type")

	var total int64

	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value(attribute.Key(key)); found && v.AsString() == value {
			total += dp.Value
		}
	}

	return total
}

func TestBatchMetrics_RecordGroup(t *testing.T) {
	t.Parallel()

	bm, reader := setupBatchMeter(t)
	ctx := context.Background()

	bm.RecordGroup(ctx, observability.GroupStats{Status: observability.StatusOK, Records: 120, Duration: time.Second})
	bm.RecordGroup(ctx, observability.GroupStats{Status: observability.StatusOK, Records: 30, Duration: 2 * time.Second})
	bm.RecordGroup(ctx, observability.GroupStats{Status: observability.StatusFailed, Stage: "open"})

	rm := collectMetrics(t, reader)

	records := findMetric(rm, "seqstat.records.total")
	require.NotNil(t, records)

	recSum, ok := records.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, recSum.DataPoints, 1)
	assert.Equal(t, int64(150), recSum.DataPoints[0].Value)

	groups := findMetric(rm, "seqstat.groups.total")
	require.NotNil(t, groups)
	assert.Equal(t, int64(2), sumByAttr(t, groups, "status", "ok"))
	assert.Equal(t, int64(1), sumByAttr(t, groups, "stage", "open"))

	dur := findMetric(rm, "seqstat.group.duration.seconds")
	require.NotNil(t, dur)

	hist, ok := dur.Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}

	assert.Equal(t, uint64(3), count)
}

func TestBatchMetrics_RecordMerge(t *testing.T) {
	t.Parallel()

	bm, reader := setupBatchMeter(t)
	ctx := context.Background()

	bm.RecordMerge(ctx, "basic_stats", nil)
	bm.RecordMerge(ctx, "basic_stats", nil)
	bm.RecordMerge(ctx, "n_content", errors.New("kind mismatch"))

	rm := collectMetrics(t, reader)

	merges := findMetric(rm, "seqstat.merges.total")
	require.NotNil(t, merges)
	assert.Equal(t, int64(2), sumByAttr(t, merges, "kind", "basic_stats"))

	failures := findMetric(rm, "seqstat.merge.errors.total")
	require.NotNil(t, failures)
	assert.Equal(t, int64(1), sumByAttr(t, failures, "kind", "n_content"))
}

func TestBatchMetrics_TrackGroup(t *testing.T) {
	t.Parallel()

	bm, reader := setupBatchMeter(t)
	ctx := context.Background()

	done := bm.TrackGroup(ctx)
	bm.TrackGroup(ctx)
	done()

	inflight := findMetric(collectMetrics(t, reader), "seqstat.groups.inflight")
	require.NotNil(t, inflight)

	sum, ok := inflight.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestBatchMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var bm *observability.BatchMetrics

	assert.NotPanics(t, func() {
		ctx := context.Background()
		bm.RecordGroup(ctx, observability.GroupStats{Status: observability.StatusOK})
		bm.RecordMerge(ctx, "basic_stats", nil)
		bm.TrackGroup(ctx)()
	})
}
