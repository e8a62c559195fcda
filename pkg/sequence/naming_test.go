package sequence_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

func TestStripKnownExtensions(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"reads.fastq":        "reads",
		"reads.fastq.gz":     "reads",
		"reads.txt.bz2":      "reads",
		"reads.fq.lz4":       "reads",
		"sample.bam":         "sample",
		"S1_L001.FASTQ.GZ":   "S1_L001",
		"reads.csv":          "reads.csv",
		".fastq":             ".fastq",
		"reads.sam.txt.gz":   "reads",
		"reads.fastq.gz.tmp": "reads.fastq.gz.tmp",
	}

	for in, want := range cases {
		assert.Equal(t, want, sequence.StripKnownExtensions(in), in)
	}
}

func TestReportPath(t *testing.T) {
	t.Parallel()

	input := filepath.Join("data", "run1", "S1_L001.fastq.gz")

	assert.Equal(t, filepath.Join("data", "run1", "S1_L001_fastqc.zip"), sequence.ReportPath(input, ""))
	assert.Equal(t, filepath.Join("out", "S1_L001_fastqc.zip"), sequence.ReportPath(input, "out"))
	assert.Equal(t, filepath.Join("data", "run1", "S1_L001_fastqc.zip"), sequence.ReportPath(input, "  "))
}

func TestDecodeColorspace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ACGT", string(sequence.DecodeColorspace([]byte("T3131"))))
	assert.Equal(t, "ANN", string(sequence.DecodeColorspace([]byte("T3.2"))))
	assert.Empty(t, sequence.DecodeColorspace([]byte("T")))
}
