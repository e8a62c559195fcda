package sequence_test

import (
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

const twoReads = "@r1 1:N:0:ATCACG\nAACCGT\n+\nIIIIII\n@r2 1:Y:0:ATCACG\nGGGGCC\n+\nIIIII#\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func writeGzip(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	return path
}

func readAll(t *testing.T, src sequence.Source) []*sequence.Record {
	t.Helper()

	var out []*sequence.Record

	require.NoError(t, sequence.Drain(src, func(r *sequence.Record) { out = append(out, r) }))

	return out
}

func TestOpen_PlainFastq(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "s1.fastq", twoReads)

	src, err := sequence.Open([]string{path}, sequence.OpenOptions{})
	require.NoError(t, err)

	defer src.Close()

	assert.Equal(t, "s1.fastq", src.Name())
	assert.Equal(t, []string{path}, src.Files())

	recs := readAll(t, src)
	require.Len(t, recs, 2)
	assert.Equal(t, "r1", string(recs[0].ID))
	assert.Equal(t, "AACCGT", string(recs[0].Bases))
	assert.Equal(t, "IIIII#", string(recs[1].Quality))
	assert.False(t, recs[1].Filtered, "filter flag only honoured in casava mode")
	assert.False(t, recs[0].IsColorspace())
}

func TestOpen_CasavaFilterFlag(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "s1.fastq", twoReads)

	src, err := sequence.Open([]string{path}, sequence.OpenOptions{Casava: true})
	require.NoError(t, err)

	defer src.Close()

	recs := readAll(t, src)
	require.Len(t, recs, 2)
	assert.False(t, recs[0].Filtered)
	assert.True(t, recs[1].Filtered)
}

func TestOpen_GzipAndMultipleFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeGzip(t, dir, "S1_L001_R1_001.fastq.gz", twoReads)
	second := writeFile(t, dir, "S1_L001_R1_002.fastq", "@r3\nNNNNAA\n+\nIIIIII\n")

	src, err := sequence.Open([]string{first, second}, sequence.OpenOptions{})
	require.NoError(t, err)

	defer src.Close()

	recs := readAll(t, src)
	require.Len(t, recs, 3)
	assert.Equal(t, "r3", string(recs[2].ID))
	assert.Equal(t, "S1_L001_R1_001.fastq.gz", src.Name())

	_, err = src.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	_, err := sequence.Open(nil, sequence.OpenOptions{})
	require.ErrorIs(t, err, sequence.ErrNoFiles)

	_, err = sequence.Open([]string{filepath.Join(t.TempDir(), "missing.fastq")}, sequence.OpenOptions{})
	require.Error(t, err)
}

func TestFileSource_PercentComplete(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "s1.fastq", twoReads)

	src, err := sequence.Open([]string{path}, sequence.OpenOptions{})
	require.NoError(t, err)

	defer src.Close()

	readAll(t, src)
	assert.GreaterOrEqual(t, src.PercentComplete(), 100)
}

func TestOpen_LowercaseBasesAreUpperCased(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fastq := writeFile(t, dir, "masked.fastq", "@r1\naaccgt\n+\nIIIIII\n")
	fasta := writeFile(t, dir, "masked.fa", ">c1\nacgTNn\n")

	src, err := sequence.Open([]string{fastq, fasta}, sequence.OpenOptions{})
	require.NoError(t, err)

	defer src.Close()

	recs := readAll(t, src)
	require.Len(t, recs, 2)
	assert.Equal(t, "AACCGT", string(recs[0].Bases))
	assert.Equal(t, "IIIIII", string(recs[0].Quality))
	assert.Equal(t, "ACGTNN", string(recs[1].Bases))
}

func TestOpen_ColorspaceFastq(t *testing.T) {
	t.Parallel()

	content := "@r1 1:N:0\nT3131\n+\nIIII\n" +
		"@r2 1:Y:0\nT3.2\n+\n!#I5\n"
	path := writeGzip(t, t.TempDir(), "solid.csfastq.gz", content)

	src, err := sequence.Open([]string{path}, sequence.OpenOptions{Casava: true})
	require.NoError(t, err)

	defer src.Close()

	recs := readAll(t, src)
	require.Len(t, recs, 2)

	assert.True(t, recs[0].IsColorspace())
	assert.Equal(t, "r1", string(recs[0].ID))
	assert.Equal(t, "T3131", string(recs[0].Colorspace))
	assert.Equal(t, "ACGT", string(recs[0].Bases))
	assert.Equal(t, "IIII", string(recs[0].Quality))
	assert.False(t, recs[0].Filtered)

	// A placeholder code for the primer is dropped.
	assert.Equal(t, "ANN", string(recs[1].Bases))
	assert.Equal(t, "#I5", string(recs[1].Quality))
	assert.True(t, recs[1].Filtered)
}

func TestOpen_ColorspaceFastqBadQuality(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "bad.csfastq", "@r1\nT0123\n+\nII\n")

	src, err := sequence.Open([]string{path}, sequence.OpenOptions{})
	require.NoError(t, err)

	defer src.Close()

	_, err = src.Next()
	require.ErrorIs(t, err, sequence.ErrDecode)
}
