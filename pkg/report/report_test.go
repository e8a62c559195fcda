package report_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/seqstat/pkg/modules"
	"github.com/Sumatoshi-tech/seqstat/pkg/report"
	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

func sampleResults() []modules.Result {
	stats := modules.NewBasicStats("S1.fastq")
	stats.Update(&sequence.Record{Bases: []byte("AACCGT"), Quality: []byte("IIIIII")})
	stats.Update(&sequence.Record{Bases: []byte("GGGGCC"), Quality: []byte("IIIIII")})

	return []modules.Result{stats.Render(), modules.NewLengthDistribution().Render()}
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, zr.Close()) })

	out := make(map[string]string, len(zr.File))

	for _, f := range zr.File {
		rc, openErr := f.Open()
		require.NoError(t, openErr)

		data, readErr := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, readErr)

		out[f.Name] = string(data)
	}

	return out
}

func TestArchiveWriter_Write(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "out", "S1_fastqc.zip")
	id := report.Identity{Name: "S1.fastq", Files: []string{"/data/S1.fastq"}}

	w := &report.ArchiveWriter{Generator: "test"}
	require.NoError(t, w.Write(context.Background(), id, sampleResults(), path))

	entries := readZip(t, path)
	require.Len(t, entries, 4)

	data := entries["S1_fastqc/fastqc_data.txt"]
	assert.True(t, strings.HasPrefix(data, "##FastQC\ttest\n>>Basic Statistics\tpass\n#Measure\tValue\n"))
	assert.Contains(t, data, "Total Sequences\t2\n")
	assert.Contains(t, data, "%GC\t75\n")
	assert.Equal(t, 2, strings.Count(data, ">>END_MODULE\n"))

	assert.Contains(t, entries["S1_fastqc/summary.txt"], "PASS\tBasic Statistics\tS1.fastq\n")
	assert.Contains(t, entries["S1_fastqc/report.txt"], "Basic Statistics [PASS]")

	var doc report.SummaryDocument
	require.NoError(t, json.Unmarshal([]byte(entries["S1_fastqc/summary.json"]), &doc))
	assert.Equal(t, "S1.fastq", doc.Name)
	assert.Equal(t, []string{"/data/S1.fastq"}, doc.Files)
	require.Len(t, doc.Modules, 2)
	assert.Equal(t, modules.KindLengthDistribution, doc.Modules[1].Kind)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".*tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestArchiveWriter_SchemaViolationLeavesNoFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad_fastqc.zip")

	err := report.NewArchiveWriter().Write(context.Background(), report.Identity{}, sampleResults(), path)
	require.ErrorIs(t, err, report.ErrSchemaViolation)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestArchiveWriter_NoResults(t *testing.T) {
	t.Parallel()

	err := report.NewArchiveWriter().Write(context.Background(),
		report.Identity{Name: "x"}, nil, filepath.Join(t.TempDir(), "x_fastqc.zip"))
	require.ErrorIs(t, err, report.ErrNoResults)
}

func TestArchiveWriter_UnwritableDirectory(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := report.NewArchiveWriter().Write(context.Background(),
		report.Identity{Name: "S1.fastq"}, sampleResults(), filepath.Join(blocker, "S1_fastqc.zip"))
	require.Error(t, err)
}

func TestWriteData_RowsAndColumns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.WriteData(&buf, "v1", []modules.Result{{
		Name:    "Sequence Length Distribution",
		Status:  modules.StatusWarn,
		Columns: []string{"Length", "Count"},
		Rows:    [][]string{{"1", "1"}, {"3", "2"}},
	}}))

	assert.Equal(t,
		"##FastQC\tv1\n>>Sequence Length Distribution\twarn\n#Length\tCount\n1\t1\n3\t2\n>>END_MODULE\n",
		buf.String())
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.PrintSummary(&buf, []report.SummaryRow{
		{Group: "S1.fastq", Status: report.StatusOK, Records: 1234567, Duration: 1500 * time.Millisecond, Report: "/o/S1_fastqc.zip"},
		{Group: "S2.fastq", Status: report.StatusFailed, Stage: "open", Error: "no such file"},
	}, true))

	out := buf.String()
	assert.Contains(t, out, "1,234,567")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "/o/S1_fastqc.zip")
	assert.Contains(t, out, "failed (open)")
	assert.Contains(t, out, "no such file")
	assert.Contains(t, strings.ToLower(out), "2 groups")
	assert.Contains(t, strings.ToLower(out), "1 failed")
	assert.NotContains(t, out, "\x1b[")
}
