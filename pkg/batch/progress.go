package batch

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/seqstat/pkg/modules"
	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

const fullPercent = 100

// progressLogger reports one group's progress on the diagnostic log. Quiet suppresses
// everything it would log; failures are logged by the orchestrator.
type progressLogger struct {
	ctx        context.Context //nolint:containedctx // listener callbacks take no context.
	logger     *slog.Logger
	quiet      bool
	apologized bool
}

func (p *progressLogger) Started(src sequence.Source) {
	if p.quiet {
		return
	}

	p.logger.InfoContext(p.ctx, "Started analysis of "+src.Name(), "files", len(src.Files()))
}

func (p *progressLogger) Updated(src sequence.Source, processed int64, percent int) {
	if p.quiet {
		return
	}

	records := humanize.Comma(processed)

	if percent <= fullPercent {
		p.logger.InfoContext(p.ctx, "Approx "+strconv.Itoa(percent)+"% complete for "+src.Name(), "records", records)

		return
	}

	if !p.apologized {
		p.apologized = true

		p.logger.InfoContext(p.ctx, "It seems our guess for the total number of records wasn't very good. Sorry about that.")
	}

	p.logger.InfoContext(p.ctx, "Still going at "+strconv.Itoa(percent)+"% complete for "+src.Name(), "records", records)
}

func (p *progressLogger) Completed(src sequence.Source, _ []modules.Module) {
	if p.quiet {
		return
	}

	p.logger.InfoContext(p.ctx, "Analysis complete for "+src.Name())
}

func (p *progressLogger) Failed(src sequence.Source, err error) {
	p.logger.DebugContext(p.ctx, "analysis stopped", "source", src.Name(), "error", err)
}
