package grouping_test

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/seqstat/pkg/grouping"
)

func TestSingletons(t *testing.T) {
	t.Parallel()

	groups := grouping.Singletons{}.Group([]string{"c.fastq", "a.fastq", "b.fastq"})

	require.Len(t, groups, 3)
	assert.Equal(t, []string{"c.fastq"}, groups[0].Files)
	assert.Equal(t, []string{"a.fastq"}, groups[1].Files)
	assert.Equal(t, []string{"b.fastq"}, groups[2].Files)
	assert.Equal(t, groups[1].First(), groups[1].Last())
}

func TestCasava(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))

	files := []string{
		filepath.Join("run", "S1_L001_R1_001.fastq.gz"),
		filepath.Join("run", "S2_L001_R1_001.fastq.gz"),
		filepath.Join("run", "S1_L001_R1_002.fastq.gz"),
		filepath.Join("run", "odd.fastq"),
		filepath.Join("other", "S1_L001_R1_003.fastq.gz"),
	}

	groups := grouping.Casava{Logger: logger}.Group(files)

	require.Len(t, groups, 4)
	assert.Equal(t, []string{files[0], files[2]}, groups[0].Files)
	assert.Equal(t, []string{files[1]}, groups[1].Files)
	assert.Equal(t, []string{files[3]}, groups[2].Files)
	assert.Equal(t, []string{files[4]}, groups[3].Files, "same basename in another directory is a separate group")
	assert.Equal(t, "S1_L001_R1_001.fastq.gz", groups[0].Name())
	assert.Equal(t, files[2], groups[0].Last())
	assert.Contains(t, buf.String(), "odd.fastq")
}

func TestCasavaBasename(t *testing.T) {
	t.Parallel()

	base, ok := grouping.CasavaBasename("/data/S1_L001_R2_001.fastq.gz")
	assert.True(t, ok)
	assert.Equal(t, "S1_L001_R2", base)

	base, ok = grouping.CasavaBasename("S1_L001_R2_010.fq")
	assert.True(t, ok)
	assert.Equal(t, "S1_L001_R2", base)

	_, ok = grouping.CasavaBasename("S1_L001_R2.fastq.gz")
	assert.False(t, ok)
}
