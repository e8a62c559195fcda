// Package batch runs the analysis over a list of input files: one unit of work per file group,
// a per-group report, and an optional aggregate report merged across all groups.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/seqstat/pkg/analysis"
	"github.com/Sumatoshi-tech/seqstat/pkg/grouping"
	"github.com/Sumatoshi-tech/seqstat/pkg/modules"
	"github.com/Sumatoshi-tech/seqstat/pkg/observability"
	"github.com/Sumatoshi-tech/seqstat/pkg/report"
	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

// Sentinel errors for batch runs.
var (
	// ErrNoFiles is returned when an aggregate is requested for no files.
	ErrNoFiles = errors.New("no readable input files")
	// ErrNoGroups is reported when every input was dropped before grouping.
	ErrNoGroups = errors.New("no file groups to analyse")
	// ErrGroupPanic is reported when a unit of work panics outside a module.
	ErrGroupPanic = errors.New("group analysis panicked")
)

// Stage names where a group stopped.
type Stage string

// Group stages.
const (
	StageOpen    Stage = "open"
	StageAnalyse Stage = "analyse"
	StageReport  Stage = "report"
)

// Options is the batch configuration.
type Options struct {
	// Quiet suppresses progress lines. Failures are still logged.
	Quiet bool

	// Verbose adds debug lines for merges and report placement.
	Verbose bool

	// Casava groups chunked Casava output files and honours the ":Y:" filter flag.
	Casava bool

	// Aggregate merges every group into one extra report.
	Aggregate bool

	// AggregateName overrides the aggregate report name.
	AggregateName string

	// OutputDir overrides report placement for per-group and aggregate reports.
	OutputDir string

	// Threads bounds the number of groups analysed at once. Zero means runtime.NumCPU().
	Threads int

	// UpdateInterval is the number of records between progress checks. Zero means the runner default.
	UpdateInterval int64
}

// GroupOutcome is the completion signal of one unit of work.
type GroupOutcome struct {
	Index    int
	Group    grouping.Group
	Name     string
	Records  int64
	Duration time.Duration

	// ReportPath is set once the group's report is written.
	ReportPath string

	// Stage and Err are set when the group failed.
	Stage Stage
	Err   error

	// MergeErr is set when the report was written but merging into the aggregate failed.
	MergeErr error
}

// OK reports whether the group produced its report.
func (o GroupOutcome) OK() bool {
	return o.Err == nil
}

// Summary is the result of a batch run. Group failures never make the batch fail.
type Summary struct {
	// Dropped lists input paths skipped as missing or unreadable.
	Dropped []string

	Groups    int
	Succeeded int
	Failed    int

	// Outcomes are in group order.
	Outcomes []GroupOutcome

	AggregatePath string
	AggregateErr  error

	// Err is set when the batch stopped waiting before every group finished.
	Err error
}

// Rows converts the outcomes to summary table rows.
func (s Summary) Rows() []report.SummaryRow {
	rows := make([]report.SummaryRow, 0, len(s.Outcomes))

	for _, o := range s.Outcomes {
		row := report.SummaryRow{
			Group:    o.Name,
			Status:   report.StatusOK,
			Records:  o.Records,
			Duration: o.Duration,
			Report:   o.ReportPath,
		}

		if !o.OK() {
			row.Status = report.StatusFailed
			row.Stage = string(o.Stage)
			row.Error = o.Err.Error()
		}

		rows = append(rows, row)
	}

	return rows
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithOpener replaces the sequence source constructor.
func WithOpener(open sequence.Opener) Option {
	return func(o *Orchestrator) { o.open = open }
}

// WithGrouper replaces the file grouper chosen from Options.Casava.
func WithGrouper(g grouping.Grouper) Option {
	return func(o *Orchestrator) { o.grouper = g }
}

// WithWriter replaces the report writer.
func WithWriter(w report.Writer) Option {
	return func(o *Orchestrator) { o.writer = w }
}

// WithModuleSet replaces the default module set.
func WithModuleSet(set *modules.Set) Option {
	return func(o *Orchestrator) { o.set = set }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the batch metric instruments.
func WithMetrics(m *observability.BatchMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer sets the tracer for batch, group, analysis, and report spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// Orchestrator runs batches. It holds no per-batch state and may be reused.
type Orchestrator struct {
	opts    Options
	open    sequence.Opener
	grouper grouping.Grouper
	writer  report.Writer
	set     *modules.Set
	logger  *slog.Logger
	metrics *observability.BatchMetrics
	tracer  trace.Tracer
}

// New creates an Orchestrator. Unset dependencies get the file-backed defaults.
func New(opts Options, options ...Option) *Orchestrator {
	o := &Orchestrator{
		opts:   opts,
		open:   sequence.Open,
		set:    modules.DefaultSet(),
		logger: slog.Default(),
		tracer: otel.Tracer("seqstat"),
	}

	for _, opt := range options {
		opt(o)
	}

	if o.grouper == nil {
		o.grouper = grouping.Singletons{}
		if opts.Casava {
			o.grouper = grouping.Casava{Logger: o.logger}
		}
	}

	if o.writer == nil {
		w := report.NewArchiveWriter()
		w.Tracer = o.tracer
		o.writer = w
	}

	if o.opts.Threads <= 0 {
		o.opts.Threads = runtime.NumCPU()
	}

	return o
}

// Run analyses every readable path and blocks until all groups have finished.
func (o *Orchestrator) Run(ctx context.Context, paths []string) Summary {
	ctx, span := o.tracer.Start(ctx, "batch.run", trace.WithAttributes(
		attribute.Int("batch.inputs", len(paths)),
		attribute.Bool("batch.aggregate", o.opts.Aggregate),
	))
	defer span.End()

	files := FilterReadable(paths, o.logger)

	summary := Summary{Dropped: dropped(paths, files)}

	groups := o.grouper.Group(files)
	summary.Groups = len(groups)
	span.SetAttributes(attribute.Int("batch.groups", len(groups)))

	if len(groups) == 0 {
		o.logger.Warn("nothing to analyse", "error", ErrNoGroups)
	}

	session := o.newSession(files)

	barrier := NewBarrier(len(groups))
	outcomes := make(chan GroupOutcome, len(groups))
	sem := make(chan struct{}, o.opts.Threads)

	for i, group := range groups {
		go func() {
			defer barrier.Done()

			outcomes <- o.runTask(ctx, sem, i, group, session)
		}()
	}

	err := barrier.Wait(ctx)
	if err != nil {
		o.logger.Error("batch interrupted", "error", err)

		summary.Err = err
	}

	summary.Outcomes = collect(outcomes, len(groups))

	for _, outcome := range summary.Outcomes {
		if outcome.OK() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	if session != nil && summary.Err == nil {
		summary.AggregatePath = session.Target.Path()
		summary.AggregateErr = o.writeAggregate(ctx, session)
	}

	span.SetAttributes(
		attribute.Int("batch.succeeded", summary.Succeeded),
		attribute.Int("batch.failed", summary.Failed),
	)

	return summary
}

// newSession builds the aggregation session. Any failure degrades the batch to
// non-aggregating mode.
func (o *Orchestrator) newSession(files []string) *Session {
	if !o.opts.Aggregate {
		return nil
	}

	session, err := NewSession(o.set, files, o.opts.AggregateName, o.opts.OutputDir)
	if err != nil {
		o.logger.Warn("aggregation disabled for this batch", "error", err)

		return nil
	}

	o.logger.Debug("aggregating batch", "report", session.Target.Path())

	return session
}

// runTask waits for a worker slot, then runs the group. It always returns an outcome.
func (o *Orchestrator) runTask(
	ctx context.Context, sem chan struct{}, index int, group grouping.Group, session *Session,
) (outcome GroupOutcome) {
	outcome = GroupOutcome{Index: index, Group: group, Name: group.Name()}
	ctx = observability.ContextWithGroup(ctx, outcome.Name)

	defer func() {
		if r := recover(); r != nil {
			outcome.Stage = StageAnalyse
			outcome.Err = fmt.Errorf("%w: %v", ErrGroupPanic, r)
			o.logFailure(ctx, outcome)
		}
	}()

	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		outcome.Stage = StageOpen
		outcome.Err = ctx.Err()
		o.logFailure(ctx, outcome)

		return outcome
	}

	return o.runGroup(ctx, outcome, session)
}

func (o *Orchestrator) runGroup(ctx context.Context, base GroupOutcome, session *Session) (outcome GroupOutcome) {
	outcome = base
	start := time.Now()
	group := outcome.Group

	ctx, span := o.tracer.Start(ctx, "batch.group", trace.WithAttributes(
		attribute.String("group.name", group.Name()),
		attribute.Int("group.files", len(group.Files)),
	))
	defer span.End()

	defer o.metrics.TrackGroup(ctx)()

	defer func() {
		outcome.Duration = time.Since(start)

		stats := observability.GroupStats{
			Status:   observability.StatusOK,
			Records:  outcome.Records,
			Duration: outcome.Duration,
		}

		if !outcome.OK() {
			stats.Status = observability.StatusFailed
			stats.Stage = string(outcome.Stage)

			span.RecordError(outcome.Err)
			span.SetStatus(codes.Error, string(outcome.Stage)+" failed")
		}

		o.metrics.RecordGroup(ctx, stats)
	}()

	src, err := o.open(group.Files, sequence.OpenOptions{Casava: o.opts.Casava})
	if err != nil {
		return o.fail(ctx, outcome, StageOpen, err)
	}

	defer func() {
		closeErr := src.Close()
		if closeErr != nil {
			o.logger.DebugContext(ctx, "close source", "error", closeErr)
		}
	}()

	outcome.Name = src.Name()

	runner := analysis.NewRunner(src, &progressLogger{ctx: ctx, logger: o.logger, quiet: o.opts.Quiet})
	runner.Tracer = o.tracer

	if o.opts.UpdateInterval > 0 {
		runner.UpdateInterval = o.opts.UpdateInterval
	}

	mods := o.set.New()

	err = runner.Run(ctx, mods)
	outcome.Records = runner.Processed()

	if err != nil {
		return o.fail(ctx, outcome, StageAnalyse, err)
	}

	path := sequence.ReportPath(group.First(), o.opts.OutputDir)

	err = o.writer.Write(ctx, report.Identity{Name: src.Name(), Files: src.Files()}, render(mods), path)
	if err != nil {
		return o.fail(ctx, outcome, StageReport, err)
	}

	outcome.ReportPath = path
	o.logger.DebugContext(ctx, "report written", "report", path)

	if session != nil {
		outcome.MergeErr = o.merge(ctx, session, mods)
	}

	return outcome
}

func (o *Orchestrator) merge(ctx context.Context, session *Session, mods []modules.Module) error {
	var errs []error

	for _, m := range mods {
		err := session.Merge(m)
		o.metrics.RecordMerge(ctx, string(m.Kind()), err)

		if err != nil {
			errs = append(errs, err)

			continue
		}

		o.logger.DebugContext(ctx, "merged into aggregate", "kind", m.Kind())
	}

	err := errors.Join(errs...)
	if err != nil {
		o.logger.WarnContext(ctx, "aggregate merge failed", "error", err)
	}

	return err
}

func (o *Orchestrator) fail(ctx context.Context, outcome GroupOutcome, stage Stage, err error) GroupOutcome {
	outcome.Stage = stage
	outcome.Err = err
	o.logFailure(ctx, outcome)

	return outcome
}

func (o *Orchestrator) logFailure(ctx context.Context, outcome GroupOutcome) {
	o.logger.ErrorContext(ctx, "Failed to process file "+outcome.Name,
		"stage", string(outcome.Stage), "files", outcome.Group.Files, "error", outcome.Err)
}

func (o *Orchestrator) writeAggregate(ctx context.Context, session *Session) error {
	if !o.opts.Quiet {
		o.logger.Info("Generating aggregated results for all files", "report", session.Target.Path())
	}

	err := o.writer.Write(ctx, session.Identity, render(session.Modules()), session.Target.Path())
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to write aggregated results", "report", session.Target.Path(), "error", err)

		return err
	}

	return nil
}

// FilterReadable keeps the paths that name readable regular files, logging each dropped path.
func FilterReadable(paths []string, logger *slog.Logger) []string {
	kept := make([]string, 0, len(paths))

	for _, path := range paths {
		err := checkReadable(path)
		if err != nil {
			logger.Warn("Skipping '"+path+"' which didn't exist, or couldn't be read", "error", err)

			continue
		}

		kept = append(kept, path)
	}

	return kept
}

var errNotRegular = errors.New("not a regular file")

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	if !info.Mode().IsRegular() {
		return errNotRegular
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	return f.Close()
}

func dropped(paths, kept []string) []string {
	keptSet := make(map[string]int, len(kept))
	for _, k := range kept {
		keptSet[k]++
	}

	var out []string

	for _, p := range paths {
		if keptSet[p] > 0 {
			keptSet[p]--

			continue
		}

		out = append(out, p)
	}

	return out
}

func collect(ch chan GroupOutcome, n int) []GroupOutcome {
	byIndex := make([]GroupOutcome, n)
	filled := make([]bool, n)

	for {
		select {
		case outcome := <-ch:
			byIndex[outcome.Index] = outcome
			filled[outcome.Index] = true
		default:
			out := make([]GroupOutcome, 0, n)

			for i, ok := range filled {
				if ok {
					out = append(out, byIndex[i])
				}
			}

			return out
		}
	}
}

func render(mods []modules.Module) []modules.Result {
	results := make([]modules.Result, len(mods))
	for i, m := range mods {
		results[i] = m.Render()
	}

	return results
}
