package report

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/seqstat/pkg/modules"
)

// ErrSchemaViolation is returned when a summary document does not match the summary schema.
var ErrSchemaViolation = errors.New("summary violates schema")

//go:embed summary.schema.json
var summarySchema []byte

var summarySchemaLoader = gojsonschema.NewBytesLoader(summarySchema)

// SummaryDocument is the JSON summary stored in every report archive.
type SummaryDocument struct {
	Name      string           `json:"name"`
	Files     []string         `json:"files"`
	Generator string           `json:"generator"`
	Modules   []modules.Result `json:"modules"`
}

// NewSummaryDocument builds the JSON summary, replacing nil collections with empty ones.
func NewSummaryDocument(id Identity, generator string, results []modules.Result) SummaryDocument {
	mods := make([]modules.Result, len(results))

	for i, res := range results {
		if res.Columns == nil {
			res.Columns = []string{}
		}

		if res.Rows == nil {
			res.Rows = [][]string{}
		}

		if res.Values == nil {
			res.Values = map[string]any{}
		}

		mods[i] = res
	}

	files := id.Files
	if files == nil {
		files = []string{}
	}

	return SummaryDocument{Name: id.Name, Files: files, Generator: generator, Modules: mods}
}

// Validate marshals the document and checks it against the embedded schema.
func (d SummaryDocument) Validate() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}

	result, err := gojsonschema.Validate(summarySchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate summary: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			msgs = append(msgs, verr.Field()+": "+verr.Description())
		}

		return nil, fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
	}

	return data, nil
}
