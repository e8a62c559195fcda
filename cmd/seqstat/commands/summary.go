package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/seqstat/pkg/batch"
	"github.com/Sumatoshi-tech/seqstat/pkg/report"
)

// batchDocument is the machine-readable batch summary.
type batchDocument struct {
	Groups         int                 `json:"groups"                    yaml:"groups"`
	Succeeded      int                 `json:"succeeded"                 yaml:"succeeded"`
	Failed         int                 `json:"failed"                    yaml:"failed"`
	Dropped        []string            `json:"dropped,omitempty"         yaml:"dropped,omitempty"`
	Aggregate      string              `json:"aggregate,omitempty"       yaml:"aggregate,omitempty"`
	AggregateError string              `json:"aggregate_error,omitempty" yaml:"aggregate_error,omitempty"`
	Error          string              `json:"error,omitempty"           yaml:"error,omitempty"`
	Results        []report.SummaryRow `json:"results"                   yaml:"results"`
}

func newBatchDocument(summary batch.Summary) batchDocument {
	doc := batchDocument{
		Groups:    summary.Groups,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Dropped:   summary.Dropped,
		Aggregate: summary.AggregatePath,
		Results:   summary.Rows(),
	}

	if summary.AggregateErr != nil {
		doc.AggregateError = summary.AggregateErr.Error()
	}

	if summary.Err != nil {
		doc.Error = summary.Err.Error()
	}

	return doc
}

func writeSummary(w io.Writer, format string, summary batch.Summary, noColor bool) error {
	switch format {
	case FormatNone:
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(newBatchDocument(summary))
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)

		err := enc.Encode(newBatchDocument(summary))
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}

		return enc.Close()
	default:
		err := report.PrintSummary(w, summary.Rows(), noColor)
		if err != nil {
			return fmt.Errorf("print summary: %w", err)
		}

		if summary.AggregatePath != "" && summary.AggregateErr == nil {
			fmt.Fprintf(w, "aggregate: %s\n", summary.AggregatePath)
		}

		return nil
	}
}
