package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/seqstat/pkg/modules"
)

// WriteData writes results in the FastQC data format: a version header, then one
// ">>Name<TAB>status" section per module with a "#"-prefixed column line and tab-separated rows.
func WriteData(w io.Writer, generator string, results []modules.Result) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "##FastQC\t%s\n", generator)

	for _, res := range results {
		fmt.Fprintf(&sb, ">>%s\t%s\n", res.Name, res.Status)

		if len(res.Columns) > 0 {
			sb.WriteString("#" + strings.Join(res.Columns, "\t") + "\n")
		}

		for _, row := range res.Rows {
			sb.WriteString(strings.Join(row, "\t") + "\n")
		}

		sb.WriteString(">>END_MODULE\n")
	}

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write data: %w", err)
	}

	return nil
}

// WriteStatusSummary writes one "STATUS<TAB>module<TAB>source" line per result.
func WriteStatusSummary(w io.Writer, id Identity, results []modules.Result) error {
	var sb strings.Builder

	for _, res := range results {
		fmt.Fprintf(&sb, "%s\t%s\t%s\n", strings.ToUpper(string(res.Status)), res.Name, id.Name)
	}

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}

// WriteTables renders every tabular result as a titled table.
func WriteTables(w io.Writer, id Identity, results []modules.Result) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n%s\n\n", id.Name, strings.Join(id.Files, "\n"))

	for _, res := range results {
		if len(res.Columns) == 0 {
			continue
		}

		tbl := table.NewWriter()
		tbl.SetStyle(table.StyleLight)
		tbl.SetTitle("%s [%s]", res.Name, strings.ToUpper(string(res.Status)))

		header := make(table.Row, len(res.Columns))
		for i, col := range res.Columns {
			header[i] = col
		}

		tbl.AppendHeader(header)

		for _, row := range res.Rows {
			cells := make(table.Row, len(row))
			for i, cell := range row {
				cells[i] = cell
			}

			tbl.AppendRow(cells)
		}

		sb.WriteString(tbl.Render())
		sb.WriteString("\n\n")
	}

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write tables: %w", err)
	}

	return nil
}
