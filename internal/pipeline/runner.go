package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"cbzpress/internal/archive"
	"cbzpress/internal/history"
	"cbzpress/internal/logging"
	"cbzpress/internal/services"
	"cbzpress/internal/staging"
	"cbzpress/internal/stats"
)

// LockFileName is the batch lock created inside the scratch directory.
const LockFileName = "cbzpress.lock"

// ErrBusy is returned when another batch holds the scratch lock.
var ErrBusy = errors.New("another cbzpress run is using the scratch directory")

// Observer is told about every finished archive. done counts archives
// handled so far, including this one.
type Observer func(done, total int, result ArchiveResult)

// BatchReport aggregates a batch run.
type BatchReport struct {
	RunID   string
	Results []ArchiveResult
	Stats   stats.CompressionStats
	// Halted is set when a critical failure stopped the batch early.
	Halted   bool
	Duration time.Duration
}

// Failures returns the failed results.
func (r BatchReport) Failures() []ArchiveResult {
	var failed []ArchiveResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Runner runs batches of archives.
type Runner struct {
	opts    Options
	deps    Dependencies
	ledger  *history.Store
	logger  *slog.Logger
	newID   func() string
	lockDir string
}

// NewRunner returns a runner. ledger may be nil to disable history.
func NewRunner(opts Options, deps Dependencies, ledger *history.Store) *Runner {
	if deps.FS == nil {
		deps.FS = afero.NewOsFs()
	}
	return &Runner{
		opts:    opts,
		deps:    deps,
		ledger:  ledger,
		logger:  logging.NewComponentLogger(deps.Logger, "runner"),
		newID:   uuid.NewString,
		lockDir: opts.ScratchDir,
	}
}

// Discover expands roots into archive paths. Directories are searched for
// comic archives (recursively when recursive is set); explicit file paths
// are returned as given so that invalid inputs surface as failures. The
// result is sorted and free of duplicates.
func (r *Runner) Discover(roots []string, recursive bool) ([]string, error) {
	seen := make(map[string]struct{})
	var found []string
	add := func(path string) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		found = append(found, path)
	}

	for _, root := range roots {
		info, err := r.deps.FS.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = afero.Walk(r.deps.FS, root, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if path != root && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if info.Mode().IsRegular() && archive.IsComicArchive(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", root, err)
		}
	}
	sort.Strings(found)
	return found, nil
}

// PlanAction is what a batch would do with an archive.
type PlanAction string

const (
	PlanCompress PlanAction = "compress"
	PlanSkip     PlanAction = "skip"
	PlanInvalid  PlanAction = "invalid"
)

// PlanEntry is one line of a dry run.
type PlanEntry struct {
	Path   string
	Action PlanAction
	Size   int64
	Reason string
}

// Plan reports what Run would do without touching any file.
func (r *Runner) Plan(archives []string) []PlanEntry {
	plan := make([]PlanEntry, 0, len(archives))
	for _, path := range archives {
		entry := PlanEntry{Path: path, Action: PlanCompress}
		info, err := os.Stat(path)
		switch {
		case !archive.IsComicArchive(path):
			entry.Action, entry.Reason = PlanInvalid, "not a .cbz archive"
		case err != nil:
			entry.Action, entry.Reason = PlanInvalid, err.Error()
		default:
			entry.Size = info.Size()
			marked, err := archive.HasCompressionLog(path)
			if err != nil {
				entry.Action, entry.Reason = PlanInvalid, err.Error()
			} else if marked {
				entry.Action, entry.Reason = PlanSkip, "already compressed"
			}
		}
		plan = append(plan, entry)
	}
	return plan
}

// Run processes archives one after another under the batch lock. Failures
// are isolated per archive unless HaltOnCritical is set and a critical
// failure occurs. The error is non-nil only when the batch could not start
// or was cancelled.
func (r *Runner) Run(ctx context.Context, archives []string, observer Observer) (BatchReport, error) {
	started := time.Now()
	report := BatchReport{RunID: r.newID()}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)

	if err := os.MkdirAll(r.lockDir, 0o755); err != nil {
		return report, fmt.Errorf("ensure scratch directory: %w", err)
	}
	lockPath := filepath.Join(r.lockDir, LockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return report, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return report, fmt.Errorf("%w (%s)", ErrBusy, lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release batch lock", logging.Error(err))
		}
	}()

	scratchRoot := staging.RunDir(r.opts.ScratchDir, report.RunID)
	orchestrator, err := NewOrchestrator(r.opts, scratchRoot, r.deps)
	if err != nil {
		return report, err
	}

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("archives", len(archives)),
	)

	var runErr error
	for i, path := range archives {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		result, procErr := orchestrator.Process(ctx, path)
		report.Results = append(report.Results, result)
		report.Stats.Merge(result.Stats)
		r.record(ctx, logger, report.RunID, result)
		if observer != nil {
			observer(i+1, len(archives), result)
		}

		if procErr == nil {
			continue
		}
		if errors.Is(procErr, context.Canceled) || errors.Is(procErr, context.DeadlineExceeded) {
			runErr = procErr
			break
		}
		if r.opts.HaltOnCritical && services.IsCritical(procErr) {
			report.Halted = true
			logging.Critical(logger, "batch halted on critical failure",
				logging.String(logging.FieldEventType, "batch_halted"),
				logging.String(logging.FieldArchive, path),
				logging.ErrorKind(procErr),
			)
			break
		}
	}

	report.Duration = time.Since(started)
	r.logSummary(logger, report)
	return report, runErr
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, runID string, result ArchiveResult) {
	if r.ledger == nil {
		return
	}
	entry := history.Entry{
		RunID:         runID,
		ArchivePath:   result.Path,
		Status:        history.Status(result.Outcome),
		OriginalBytes: result.OriginalSize,
		KeptBytes:     result.FinalSize,
		Pages:         result.Pages,
		Duration:      result.Duration,
	}
	if result.Err != nil {
		entry.ErrorKind = services.Kind(result.Err)
		entry.ErrorMessage = result.Err.Error()
	}
	// A cancelled batch still records what it finished.
	if _, err := r.ledger.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logger, "history record failed", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcome missing from `cbzpress history`"),
		)
	}
}

func (r *Runner) logSummary(logger *slog.Logger, report BatchReport) {
	st := report.Stats
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("archives", st.TotalArchives),
		logging.Int("succeeded", st.Succeeded),
		logging.Int("already_compressed", st.AlreadyCompressed),
		logging.Int("failed", st.Failed),
		logging.Int64("original_bytes", st.OriginalBytes),
		logging.Int64("kept_bytes", st.KeptBytes),
		logging.Duration("duration", report.Duration),
	}
	if pct, ok := st.ReductionPercent(); ok {
		attrs = append(attrs, logging.Float64("reduction_percent", -pct))
	}
	if st.Failed > 0 {
		logging.WarnWithContext(logger, "batch completed with failures", "batch_complete", append(attrs,
			logging.String(logging.FieldErrorHint, "see failed archives above; originals were left untouched"),
			logging.String(logging.FieldImpact, "some archives were not recompressed"),
		)...)
		return
	}
	logger.Info("batch completed", logging.Args(attrs...)...)
}
