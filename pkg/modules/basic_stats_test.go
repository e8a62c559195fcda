package modules_test

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/seqstat/pkg/modules"
	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

func rec(bases, qual string, filtered bool) *sequence.Record {
	return &sequence.Record{Bases: []byte(bases), Quality: []byte(qual), Filtered: filtered}
}

func feed(name string, recs ...*sequence.Record) *modules.BasicStats {
	b := modules.NewBasicStats(name)
	for _, r := range recs {
		b.Update(r)
	}

	return b
}

func merged(t *testing.T, parts ...*modules.BasicStats) *modules.BasicStats {
	t.Helper()

	out := modules.NewBasicStats("")
	for _, p := range parts {
		require.NoError(t, out.MergeFrom(p))
	}

	return out
}

func counters(s modules.BasicStatsSnapshot) modules.BasicStatsSnapshot {
	s.Name = ""

	return s
}

func TestBasicStats_EndToEnd(t *testing.T) {
	t.Parallel()

	b := feed("s1.fastq",
		rec("AACCGT", "IIIIII", false),
		rec("GGGGCC", "IIIIII", false),
		rec("NNNNAA", "IIIIII", true),
	)

	s := b.Snapshot()
	assert.Equal(t, int64(2), s.Processed)
	assert.Equal(t, int64(1), s.Filtered)
	assert.Equal(t, 6, s.MinLength)
	assert.Equal(t, 6, s.MaxLength)
	// G+C = 9 of 12 called bases.
	assert.Equal(t, int64(75), s.GCPercent())
	assert.Equal(t, "6", s.LengthRange())
	assert.Equal(t, int64(0), s.N, "filtered reads contribute no bases")
	assert.Equal(t, byte('I'), s.LowestQuality)
	assert.Equal(t, modules.FileTypeConventional, s.FileType)

	res := b.Render()
	assert.Equal(t, modules.KindBasicStats, res.Kind)
	assert.Equal(t, []string{"Filename", "s1.fastq"}, res.Rows[0])
	assert.Equal(t, []string{"Encoding", "Illumina 1.5"}, res.Rows[2])
	assert.Equal(t, []string{"%GC", "75"}, res.Rows[6])
}

func TestBasicStats_FilteredOnlyTouchesFilteredCounter(t *testing.T) {
	t.Parallel()

	b := feed("", rec("GGCCNN", "!!!!!!", true))

	s := b.Snapshot()
	assert.Equal(t, int64(1), s.Filtered)
	assert.Zero(t, s.Processed)
	assert.Zero(t, s.MinLength)
	assert.Zero(t, s.G+s.C+s.N)
	assert.Equal(t, byte(126), s.LowestQuality)
	assert.Empty(t, s.FileType)
}

func TestBasicStats_GCPercent(t *testing.T) {
	t.Parallel()

	assert.Zero(t, feed("").Snapshot().GCPercent())
	assert.Zero(t, feed("", rec("NNNN", "IIII", false)).Snapshot().GCPercent())
	assert.Equal(t, int64(66), feed("", rec("GGA", "III", false)).Snapshot().GCPercent(), "truncates 66.6")
	assert.Equal(t, int64(100), feed("", rec("GCxx", "IIII", false)).Snapshot().GCPercent(), "unknown bases ignored")
}

func TestBasicStats_LengthRange(t *testing.T) {
	t.Parallel()

	b := feed("", rec("AAAA", "IIII", false), rec("AA", "II", false), rec("AAAAAAA", "IIIIIII", false))
	assert.Equal(t, "2-7", b.Snapshot().LengthRange())
}

func TestBasicStats_Colorspace(t *testing.T) {
	t.Parallel()

	r := &sequence.Record{Bases: []byte("ACGT"), Quality: []byte("IIII"), Colorspace: []byte("T3131")}
	assert.Equal(t, modules.FileTypeColorspace, feed("", r).Snapshot().FileType)
}

func TestBasicStats_MergeIntoEmptyAdoptsMin(t *testing.T) {
	t.Parallel()

	agg := modules.NewBasicStats("agg")
	require.NoError(t, agg.MergeFrom(feed("", rec("AAAAA", "IIIII", false))))

	s := agg.Snapshot()
	assert.Equal(t, 5, s.MinLength)
	assert.Equal(t, 5, s.MaxLength)
	assert.Equal(t, "agg", s.Name)
}

func TestBasicStats_MergeIgnoresEmptySide(t *testing.T) {
	t.Parallel()

	agg := feed("", rec("AAAAA", "IIIII", false))
	require.NoError(t, agg.MergeFrom(feed("", rec("AA", "II", true))))

	s := agg.Snapshot()
	assert.Equal(t, 5, s.MinLength)
	assert.Equal(t, int64(1), s.Filtered)
}

func randomPart(rng *rand.Rand) *modules.BasicStats {
	const alphabet = "ACGTNx"

	b := modules.NewBasicStats("")

	for range rng.Intn(20) {
		n := 1 + rng.Intn(30)
		bases := make([]byte, n)
		qual := make([]byte, n)

		for i := range n {
			bases[i] = alphabet[rng.Intn(len(alphabet))]
			qual[i] = byte(33 + rng.Intn(60))
		}

		b.Update(&sequence.Record{Bases: bases, Quality: qual, Filtered: rng.Intn(5) == 0})
	}

	return b
}

func TestBasicStats_MergeAssociativeCommutative(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))

	for range 50 {
		a, b, c := randomPart(rng), randomPart(rng), randomPart(rng)

		left := counters(merged(t, merged(t, a, b), c).Snapshot())
		right := counters(merged(t, a, merged(t, b, c)).Snapshot())
		rotated := counters(merged(t, merged(t, b, c), a).Snapshot())

		assert.Equal(t, left, right)
		assert.Equal(t, left, rotated)
	}
}

func TestBasicStats_MergeMatchesSinglePass(t *testing.T) {
	t.Parallel()

	recs := []*sequence.Record{
		rec("ACGT", "IIII", false),
		rec("GG", "##", false),
		rec("NNNNNNNN", "IIIIIIII", true),
		rec("ATATATAT", "55555555", false),
	}

	whole := feed("", recs...)
	split := merged(t, feed("", recs[:2]...), feed("", recs[2:]...))

	assert.Equal(t, counters(whole.Snapshot()), counters(split.Snapshot()))
}

func TestBasicStats_ConcurrentMerges(t *testing.T) {
	t.Parallel()

	agg := modules.NewBasicStats("agg")

	var wg sync.WaitGroup

	for range 64 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, agg.MergeFrom(feed("", rec("GCGC", "IIII", false), rec("AT", "II", true))))
		}()
	}

	wg.Wait()

	s := agg.Snapshot()
	assert.Equal(t, int64(64), s.Processed)
	assert.Equal(t, int64(64), s.Filtered)
	assert.Equal(t, int64(128), s.G)
	assert.Equal(t, int64(100), s.GCPercent())
}

func TestBasicStats_MergeErrors(t *testing.T) {
	t.Parallel()

	b := modules.NewBasicStats("")

	require.ErrorIs(t, b.MergeFrom(modules.NewNContent()), modules.ErrKindMismatch)
	require.ErrorIs(t, b.MergeFrom(nil), modules.ErrKindMismatch)
	require.ErrorIs(t, b.MergeFrom(b), modules.ErrSelfMerge)
}

func TestBasicStats_Reset(t *testing.T) {
	t.Parallel()

	b := feed("keep", rec("ACGT", "IIII", false), rec("A", "I", true))
	b.Reset()

	s := b.Snapshot()
	assert.Equal(t, modules.BasicStatsSnapshot{Name: "keep", LowestQuality: 126}, s)
}

func TestBasicStats_BindSource(t *testing.T) {
	t.Parallel()

	b := modules.NewBasicStats("")
	b.BindSource("a.fastq")
	b.BindSource("b.fastq")
	assert.Equal(t, "a.fastq", b.Snapshot().Name)
}
