package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Group outcome labels shown in summaries.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// SummaryRow is one file group in the end-of-batch summary.
type SummaryRow struct {
	Group    string        `json:"group"              yaml:"group"`
	Status   string        `json:"status"             yaml:"status"`
	Stage    string        `json:"stage,omitempty"    yaml:"stage,omitempty"`
	Records  int64         `json:"records"            yaml:"records"`
	Duration time.Duration `json:"duration"           yaml:"duration"`
	Report   string        `json:"report,omitempty"   yaml:"report,omitempty"`
	Error    string        `json:"error,omitempty"    yaml:"error,omitempty"`
}

// PrintSummary renders the batch summary as a table followed by a totals line.
func PrintSummary(w io.Writer, rows []SummaryRow, noColor bool) error {
	okColor := color.New(color.FgGreen)
	failColor := color.New(color.FgRed)

	if noColor {
		okColor.DisableColor()
		failColor.DisableColor()
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Group", "Status", "Records", "Time", "Report"})

	var failed int

	for _, row := range rows {
		status := okColor.Sprint(row.Status)
		detail := row.Report

		if row.Status != StatusOK {
			failed++

			status = failColor.Sprintf("%s (%s)", row.Status, row.Stage)
			detail = row.Error
		}

		tbl.AppendRow(table.Row{
			row.Group,
			status,
			humanize.Comma(row.Records),
			row.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d groups", len(rows)), fmt.Sprintf("%d failed", failed)})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("print summary: %w", err)
	}

	return nil
}
