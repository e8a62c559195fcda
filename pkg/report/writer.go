// Package report writes analysis results as report archives and terminal summaries.
package report

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/seqstat/pkg/modules"
	"github.com/Sumatoshi-tech/seqstat/pkg/version"
)

const (
	dataFile    = "fastqc_data.txt"
	summaryFile = "summary.txt"
	tablesFile  = "report.txt"
	jsonFile    = "summary.json"

	dirPerm = 0o755
)

// ErrNoResults is returned when a report is requested without module results.
var ErrNoResults = errors.New("no module results")

// Identity names the source a report describes.
type Identity struct {
	Name  string
	Files []string
}

// Writer emits one report artifact for a source.
type Writer interface {
	Write(ctx context.Context, id Identity, results []modules.Result, path string) error
}

// ArchiveWriter writes a zip archive holding a FastQC-compatible data file, a pass/warn/fail
// summary, human-readable tables, and a JSON summary.
type ArchiveWriter struct {
	// Generator is recorded in the data file header and the JSON summary.
	Generator string

	// Tracer is the OTel tracer for the write span. When nil, falls back to otel.Tracer("seqstat").
	Tracer trace.Tracer
}

// NewArchiveWriter creates an ArchiveWriter stamped with the binary version.
func NewArchiveWriter() *ArchiveWriter {
	return &ArchiveWriter{Generator: version.Version}
}

// Write implements Writer. The archive appears at path only once complete.
func (w *ArchiveWriter) Write(ctx context.Context, id Identity, results []modules.Result, path string) error {
	tracer := w.Tracer
	if tracer == nil {
		tracer = otel.Tracer("seqstat")
	}

	_, span := tracer.Start(ctx, "report.write", trace.WithAttributes(attribute.String("report.path", path)))
	defer span.End()

	err := w.write(id, results, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "report write failed")

		return err
	}

	return nil
}

func (w *ArchiveWriter) write(id Identity, results []modules.Result, path string) error {
	if len(results) == 0 {
		return fmt.Errorf("%w: %s", ErrNoResults, id.Name)
	}

	doc := NewSummaryDocument(id, w.Generator, results)

	summaryJSON, err := doc.Validate()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)

	err = os.MkdirAll(dir, dirPerm)
	if err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	tmpName := tmp.Name()

	err = w.fillArchive(tmp, id, results, strings.TrimSuffix(filepath.Base(path), ".zip"), summaryJSON)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return err
	}

	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("close report: %w", err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("place report: %w", err)
	}

	return nil
}

func (w *ArchiveWriter) fillArchive(out io.Writer, id Identity, results []modules.Result, stem string, summaryJSON []byte) error {
	zw := zip.NewWriter(out)

	entries := []struct {
		name  string
		write func(io.Writer) error
	}{
		{dataFile, func(dst io.Writer) error { return WriteData(dst, w.Generator, results) }},
		{summaryFile, func(dst io.Writer) error { return WriteStatusSummary(dst, id, results) }},
		{tablesFile, func(dst io.Writer) error { return WriteTables(dst, id, results) }},
		{jsonFile, func(dst io.Writer) error {
			_, err := dst.Write(summaryJSON)

			return err
		}},
	}

	for _, entry := range entries {
		dst, err := zw.Create(stem + "/" + entry.name)
		if err != nil {
			return fmt.Errorf("add %s: %w", entry.name, err)
		}

		err = entry.write(dst)
		if err != nil {
			return fmt.Errorf("write %s: %w", entry.name, err)
		}
	}

	err := zw.Close()
	if err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}

	return nil
}
