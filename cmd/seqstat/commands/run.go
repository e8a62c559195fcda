// Package commands implements CLI command handlers for seqstat.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/seqstat/pkg/batch"
	"github.com/Sumatoshi-tech/seqstat/pkg/config"
	"github.com/Sumatoshi-tech/seqstat/pkg/modules"
	"github.com/Sumatoshi-tech/seqstat/pkg/observability"
	"github.com/Sumatoshi-tech/seqstat/pkg/version"
)

// Summary output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatNone  = "none"
)

const shutdownTimeout = 5 * time.Second

var (
	// ErrUnknownFormat is returned for an unsupported --summary-format value.
	ErrUnknownFormat = errors.New("unknown summary format")
	// ErrBatchInterrupted is returned when the batch stopped before every group finished.
	ErrBatchInterrupted = errors.New("batch interrupted")
)

type observabilityInit func(cfg observability.Config, cmd *cobra.Command) (observability.Providers, error)

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	configPath    string
	aggregateName string
	outputDir     string
	logLevel      string
	metricsAddr   string
	format        string
	modules       []string
	threads       int
	casava        bool
	aggregate     bool
	quiet         bool
	verbose       bool
	logJSON       bool
	noColor       bool

	initObs observabilityInit
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return newRunCommandWithDeps(initObservability)
}

func newRunCommandWithDeps(initObs observabilityInit) *cobra.Command {
	rc := &RunCommand{
		format:  FormatTable,
		initObs: initObs,
	}

	cmd := &cobra.Command{
		Use:   "run <file>...",
		Short: "Analyse a batch of sequence files",
		Long: `Analyse every readable file, writing <name>_fastqc.zip next to each input
(or into --outdir). With --aggregate, every group is also merged into one
AggregatedResults report. Unreadable files are skipped with a warning; failed
groups are reported without failing the batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "Config file (default: seqstat.yaml in ., ./config, /etc/seqstat)")
	cmd.Flags().BoolVar(&rc.casava, "casava", false, "Group Casava chunked files and drop filtered reads")
	cmd.Flags().BoolVar(&rc.aggregate, "aggregate", false, "Also write one report merged across all groups")
	cmd.Flags().StringVar(&rc.aggregateName, "aggregate-name", "", "Aggregate report name (default: AggregatedResults_<first>_to_<last>)")
	cmd.Flags().StringVarP(&rc.outputDir, "outdir", "o", "", "Directory for all reports (default: next to each input)")
	cmd.Flags().IntVarP(&rc.threads, "threads", "t", 0, "Groups analysed at once (0 = use CPU count)")
	cmd.Flags().StringSliceVarP(&rc.modules, "modules", "m", nil, "Module kinds to run (default: all)")
	cmd.Flags().BoolVarP(&rc.quiet, "quiet", "q", false, "Suppress progress output; failures are still logged")
	cmd.Flags().BoolVarP(&rc.verbose, "verbose", "v", false, "Log merges and report placement")
	cmd.Flags().StringVar(&rc.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&rc.logJSON, "log-json", false, "Log as JSON")
	cmd.Flags().StringVar(&rc.metricsAddr, "metrics-addr", "", "Serve Prometheus /metrics and /healthz on this address while running")
	cmd.Flags().StringVar(&rc.format, "summary-format", FormatTable, "Batch summary on stdout: table, json, yaml, none")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored summary output")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	if !slices.Contains([]string{FormatTable, FormatJSON, FormatYAML, FormatNone}, rc.format) {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, rc.format)
	}

	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rc.applyFlags(cmd, cfg)

	err = cfg.Validate()
	if err != nil {
		return err
	}

	set := modules.DefaultSet()
	if len(cfg.Batch.Modules) > 0 {
		set, err = set.Select(cfg.Batch.Modules)
		if err != nil {
			return fmt.Errorf("select modules: %w", err)
		}
	}

	providers, err := rc.initObs(cfg.Observability(version.Version), cmd)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := providers.Shutdown(shutdownCtx)
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	metrics, err := observability.NewBatchMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	if cfg.Telemetry.MetricsAddr != "" && providers.MetricsHandler != nil {
		srv, srvErr := observability.StartMetricsServer(cfg.Telemetry.MetricsAddr,
			observability.NewMetricsHandler(providers.Tracer, providers.MetricsHandler), providers.Logger)
		if srvErr != nil {
			return fmt.Errorf("start metrics server: %w", srvErr)
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			stopErr := srv.Shutdown(shutdownCtx)
			if stopErr != nil {
				providers.Logger.Warn("metrics server shutdown failed", "error", stopErr)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	orchestrator := batch.New(cfg.BatchOptions(),
		batch.WithModuleSet(set),
		batch.WithLogger(providers.Logger),
		batch.WithTracer(providers.Tracer),
		batch.WithMetrics(metrics),
	)

	summary := orchestrator.Run(ctx, args)

	err = writeSummary(cmd.OutOrStdout(), rc.format, summary, rc.noColor)
	if err != nil {
		return err
	}

	if summary.Err != nil {
		return fmt.Errorf("%w: %w", ErrBatchInterrupted, summary.Err)
	}

	return nil
}

// applyFlags overrides config values with the flags set on the command line.
func (rc *RunCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("casava") {
		cfg.Batch.Casava = rc.casava
	}

	if flags.Changed("aggregate") {
		cfg.Batch.Aggregate = rc.aggregate
	}

	if flags.Changed("aggregate-name") {
		cfg.Batch.AggregateName = rc.aggregateName
	}

	if flags.Changed("outdir") {
		cfg.Batch.OutputDir = rc.outputDir
	}

	if flags.Changed("threads") {
		cfg.Batch.Threads = rc.threads
	}

	if flags.Changed("modules") {
		cfg.Batch.Modules = rc.modules
	}

	if flags.Changed("quiet") {
		cfg.Batch.Quiet = rc.quiet
	}

	if flags.Changed("verbose") {
		cfg.Batch.Verbose = rc.verbose
	}

	if flags.Changed("log-level") {
		cfg.Logging.Level = rc.logLevel
	}

	if flags.Changed("log-json") {
		cfg.Logging.JSON = rc.logJSON
	}

	if flags.Changed("metrics-addr") {
		cfg.Telemetry.MetricsAddr = rc.metricsAddr
	}
}

func initObservability(cfg observability.Config, cmd *cobra.Command) (observability.Providers, error) {
	providers, err := observability.InitWithWriter(cfg, cmd.ErrOrStderr())
	if err != nil {
		return observability.Providers{}, fmt.Errorf("observability: %w", err)
	}

	return providers, nil
}
