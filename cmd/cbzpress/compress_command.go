package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"cbzpress/internal/config"
	"cbzpress/internal/history"
	"cbzpress/internal/pipeline"
	"cbzpress/internal/platform"
	"cbzpress/internal/preflight"
	"cbzpress/internal/textutil"
)

type compressFlags struct {
	recursive      bool
	alwaysKeep     bool
	format         string
	workers        int
	threshold      int
	haltOnCritical bool
	dryRun         bool
}

func newCompressCommand(ctx *commandContext) *cobra.Command {
	var flags compressFlags

	cmd := &cobra.Command{
		Use:   "compress PATH...",
		Short: "Recompress comic archives in place",
		Long: `Recompress the pages of every .cbz archive named on the command line or
found below the given directories.

Each page is re-encoded and the smaller rendition is kept. Archives that
already carry a compression log are skipped, so running the command twice is
harmless. A failed archive is never modified.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			run := *cfg
			if err := applyCompressFlags(cmd, &run, flags); err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			opts := pipeline.OptionsFromConfig(&run)
			var ledger *history.Store
			if run.History.Enabled && !flags.dryRun {
				ledger, err = history.Open(run.HistoryPath())
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer ledger.Close()
			}
			runner := pipeline.NewRunner(opts, pipeline.Dependencies{Logger: logger}, ledger)

			archives, err := runner.Discover(args, opts.Recursive)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(archives) == 0 {
				fmt.Fprintln(out, "No archives found")
				return nil
			}
			if flags.dryRun {
				printPlan(out, runner.Plan(archives))
				return nil
			}

			results := preflight.RunAll(cmd.Context(), &run, platform.Detect())
			if failed := preflight.Failed(results); len(failed) > 0 {
				parts := make([]string, 0, len(failed))
				for _, r := range failed {
					parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
				}
				return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			observer, finish := newProgressObserver(cmd.ErrOrStderr(), len(archives))
			report, runErr := runner.Run(runCtx, archives, observer)
			finish()

			printReport(out, report)
			if runErr != nil {
				if errors.Is(runErr, context.Canceled) {
					fmt.Fprintln(out, "Interrupted; remaining archives were not processed")
				}
				return runErr
			}
			if report.Halted {
				return fmt.Errorf("batch halted after a critical failure in %s", filepath.Base(report.Results[len(report.Results)-1].Path))
			}
			if failed := report.Stats.Failed; failed > 0 {
				return fmt.Errorf("%d of %d archives failed", failed, len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&flags.recursive, "recursive", "r", false, "Search directories recursively (overrides batch.recursive)")
	cmd.Flags().BoolVar(&flags.alwaysKeep, "always-keep-compressed", false, "Keep every compressed page regardless of size")
	cmd.Flags().StringVar(&flags.format, "format", "", "Target page format: webp or jpeg")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Pages encoded in parallel per archive (0 = one per CPU)")
	cmd.Flags().IntVar(&flags.threshold, "threshold", 0, "Keep a compressed page only below this percentage of the original")
	cmd.Flags().BoolVar(&flags.haltOnCritical, "halt-on-critical", false, "Stop the batch at the first damaged archive")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "List what would be done without touching any archive")
	return cmd
}

// applyCompressFlags layers explicitly set flags over cfg and revalidates.
func applyCompressFlags(cmd *cobra.Command, cfg *config.Config, flags compressFlags) error {
	changed := cmd.Flags().Changed
	if changed("recursive") {
		cfg.Batch.Recursive = flags.recursive
	}
	if changed("always-keep-compressed") {
		cfg.Compression.AlwaysKeepCompressed = flags.alwaysKeep
	}
	if changed("format") {
		format := strings.ToLower(strings.TrimSpace(flags.format))
		if format == "jpg" {
			format = "jpeg"
		}
		cfg.Compression.Format = format
	}
	if changed("workers") {
		cfg.Compression.Workers = flags.workers
	}
	if changed("threshold") {
		cfg.Compression.KeepThresholdPercent = flags.threshold
	}
	if changed("halt-on-critical") {
		cfg.Batch.HaltOnCritical = flags.haltOnCritical
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// newProgressObserver returns a progress callback and a finish func. The bar
// is only drawn when w is a terminal.
func newProgressObserver(w io.Writer, total int) (pipeline.Observer, func()) {
	if !isTerminal(w) {
		return nil, func() {}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("compressing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
	observer := func(done, total int, result pipeline.ArchiveResult) {
		bar.Describe(filepath.Base(result.Path))
		_ = bar.Add(1)
	}
	return observer, func() { _ = bar.Finish() }
}

func printPlan(out io.Writer, plan []pipeline.PlanEntry) {
	rows := make([][]string, 0, len(plan))
	for _, entry := range plan {
		size := "-"
		if entry.Size > 0 {
			size = humanize.IBytes(uint64(entry.Size))
		}
		rows = append(rows, []string{filepath.Base(entry.Path), string(entry.Action), size, entry.Reason})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Archive", "Action", "Size", "Reason"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func printReport(out io.Writer, report pipeline.BatchReport) {
	if len(report.Results) > 0 {
		rows := make([][]string, 0, len(report.Results))
		for _, res := range report.Results {
			rows = append(rows, reportRow(res))
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Archive", "Outcome", "Pages", "Before", "After", "Saved", "Detail"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
		))
	}
	fmt.Fprintln(out, report.Stats.Summary())
}

func reportRow(res pipeline.ArchiveResult) []string {
	pages, before, after, saved, detail := "-", "-", "-", "-", ""
	if res.OriginalSize > 0 {
		before = humanize.IBytes(uint64(res.OriginalSize))
	}
	switch res.Outcome {
	case pipeline.OutcomeCompressed:
		pages = strconv.Itoa(res.Pages)
		after = humanize.IBytes(uint64(res.FinalSize))
		if pct, ok := res.Stats.ReductionPercent(); ok {
			saved = fmt.Sprintf("%.1f%%", pct)
		}
	case pipeline.OutcomeSkipped:
		detail = "already compressed"
	case pipeline.OutcomeFailed:
		detail = res.Stage
		if res.Err != nil {
			detail = fmt.Sprintf("%s: %v", res.Stage, res.Err)
		}
	}
	return []string{filepath.Base(res.Path), textutil.TitleCase(string(res.Outcome)), pages, before, after, saved, detail}
}
