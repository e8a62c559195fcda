package batch_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/seqstat/pkg/batch"
	"github.com/Sumatoshi-tech/seqstat/pkg/modules"
)

func TestAggregateTarget_Defaults(t *testing.T) {
	t.Parallel()

	first := filepath.Join("runs", "day1", "S1_L1.fastq")
	last := filepath.Join("runs", "day2", "S1_L2.fastq")

	target, err := batch.AggregateTarget([]string{first, last}, "", "")
	require.NoError(t, err)

	assert.Equal(t, "AggregatedResults_S1_L1.fastq_to_S1_L2.fastq", target.Name)
	assert.Equal(t, filepath.Dir(first), target.Dir)
	assert.Equal(t,
		filepath.Join("runs", "day1", "AggregatedResults_S1_L1.fastq_to_S1_L2.fastq_fastqc.zip"),
		target.Path())
}

func TestAggregateTarget_Explicit(t *testing.T) {
	t.Parallel()

	target, err := batch.AggregateTarget([]string{"a.fastq"}, "lane1", "/out")
	require.NoError(t, err)
	assert.Equal(t, batch.Target{Name: "lane1", Dir: "/out"}, target)
	assert.Equal(t, filepath.Join("/out", "lane1_fastqc.zip"), target.Path())

	blank, err := batch.AggregateTarget([]string{"/d/a.fastq"}, "  ", "\t")
	require.NoError(t, err)
	assert.Equal(t, batch.Target{Name: "AggregatedResults_a.fastq_to_a.fastq", Dir: "/d"}, blank)
}

func TestAggregateTarget_NoFiles(t *testing.T) {
	t.Parallel()

	_, err := batch.AggregateTarget(nil, "name", "/out")
	require.ErrorIs(t, err, batch.ErrNoFiles)
}

func TestNewSession(t *testing.T) {
	t.Parallel()

	session, err := batch.NewSession(modules.DefaultSet(), []string{"/d/a.fastq", "/d/b.fastq"}, "", "")
	require.NoError(t, err)

	assert.Equal(t, "AggregatedResults_a.fastq_to_b.fastq", session.Identity.Name)
	assert.Equal(t, []string{"/d/a.fastq", "/d/b.fastq"}, session.Identity.Files)

	mods := session.Modules()
	require.Len(t, mods, len(modules.DefaultSet().Kinds()))
	assert.Equal(t, modules.KindBasicStats, mods[0].Kind())

	stats, ok := mods[0].(*modules.BasicStats)
	require.True(t, ok)
	assert.Equal(t, "AggregatedResults_a.fastq_to_b.fastq", stats.Snapshot().Name)

	require.NoError(t, session.Merge(modules.NewNContent()))
}

func TestSession_MergeUnknownKind(t *testing.T) {
	t.Parallel()

	set, err := modules.DefaultSet().Select([]string{string(modules.KindBasicStats)})
	require.NoError(t, err)

	session, err := batch.NewSession(set, []string{"a.fastq"}, "", "")
	require.NoError(t, err)

	require.ErrorIs(t, session.Merge(modules.NewNContent()), modules.ErrKindMismatch)
}
