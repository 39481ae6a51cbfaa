package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cbzpress/internal/archive"
	"cbzpress/internal/comicinfo"
	"cbzpress/internal/complog"
	"cbzpress/internal/fileutil"
	"cbzpress/internal/imaging"
	"cbzpress/internal/keep"
	"cbzpress/internal/logging"
	"cbzpress/internal/sanitize"
	"cbzpress/internal/services"
	"cbzpress/internal/staging"
	"cbzpress/internal/stats"
	"cbzpress/internal/textutil"
)

// Outcome is the per-archive result class.
type Outcome string

const (
	OutcomeCompressed Outcome = "compressed"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
)

// ArchiveResult describes what happened to one archive. Stats carries page
// counters only for compressed archives; skipped and failed archives
// contribute just their archive counters.
type ArchiveResult struct {
	Path         string
	Outcome      Outcome
	Stats        stats.CompressionStats
	Pages        int
	OriginalSize int64
	FinalSize    int64
	Stage        string
	Err          error
	Duration     time.Duration
}

// Orchestrator processes single archives inside one scratch layout.
type Orchestrator struct {
	opts      Options
	deps      Dependencies
	layout    staging.Layout
	sanitizer *sanitize.Sanitizer
	logger    *slog.Logger
}

// NewOrchestrator prepares an orchestrator working under scratchRoot.
func NewOrchestrator(opts Options, scratchRoot string, deps Dependencies) (*Orchestrator, error) {
	deps, err := deps.withDefaults(opts)
	if err != nil {
		return nil, err
	}
	logger := logging.NewComponentLogger(deps.Logger, "pipeline")
	return &Orchestrator{
		opts:      opts,
		deps:      deps,
		layout:    staging.NewLayout(scratchRoot),
		sanitizer: sanitize.New(deps.FS, logging.NewComponentLogger(deps.Logger, "sanitize")),
		logger:    logger,
	}, nil
}

// archiveRun is the mutable state threaded through the stages of one
// archive.
type archiveRun struct {
	path   string
	pages  []*imaging.Page
	kept   []keep.Kept
	names  []string
	stats  stats.CompressionStats
	staged *archive.Staged
}

// Process runs the full pipeline for archivePath. The returned error is the
// same as result.Err.
func (o *Orchestrator) Process(ctx context.Context, archivePath string) (result ArchiveResult, err error) {
	started := time.Now()
	result = ArchiveResult{Path: archivePath}
	ctx = services.WithArchive(ctx, archivePath)
	logger := logging.WithContext(ctx, o.logger)

	defer func() {
		result.Duration = time.Since(started)
		if err != nil {
			result.Outcome = OutcomeFailed
			result.Err = err
			result.Stage = FailedStage(err)
			result.Stats = stats.CompressionStats{TotalArchives: 1, Failed: 1}
		}
	}()

	skip, err := o.checkMarker(ctx, archivePath, &result)
	if err != nil {
		return result, err
	}
	if skip {
		result.Outcome = OutcomeSkipped
		result.Stats = stats.CompressionStats{TotalArchives: 1, AlreadyCompressed: 1}
		logger.Info("archive already compressed",
			logging.String(logging.FieldEventType, "archive_skipped"),
			logging.Int64("original_bytes", result.OriginalSize),
		)
		return result, nil
	}

	run := &archiveRun{path: archivePath}
	defer func() {
		if run.staged != nil {
			_ = run.staged.Discard()
		}
		if wipeErr := o.layout.Wipe(o.deps.FS); wipeErr != nil {
			logging.WarnWithContext(logger, "scratch wipe failed", "scratch_wipe_failed",
				logging.Error(wipeErr),
				logging.String(logging.FieldErrorHint, "run `cbzpress scratch clean`"),
				logging.String(logging.FieldImpact, "scratch space is not reclaimed"),
			)
		}
	}()

	stages := []stage{
		{StagePrepare, o.prepare},
		{StageExtract, func(ctx context.Context) error { return o.extract(ctx, run) }},
		{StageSanitize, o.sanitize},
		{StageEnumerate, func(ctx context.Context) error { return o.enumerate(run) }},
		{StageCompress, func(ctx context.Context) error { return o.compress(ctx, run) }},
		{StageSelect, func(ctx context.Context) error { return o.selectPages(run) }},
		{StageAssemble, func(ctx context.Context) error { return o.assemble(run) }},
		{StageReconcile, func(ctx context.Context) error { return o.reconcile(ctx, run) }},
		{StageLog, func(ctx context.Context) error { return o.writeLog(run) }},
		{StagePack, func(ctx context.Context) error { return o.pack(ctx, run) }},
		{StageCommit, func(ctx context.Context) error { return o.commit(run) }},
	}
	for _, s := range stages {
		if err := runStage(ctx, logger, s); err != nil {
			return result, err
		}
	}

	run.stats.TotalArchives = 1
	run.stats.Succeeded = 1
	result.Outcome = OutcomeCompressed
	result.Stats = run.stats
	result.Pages = len(run.kept)
	if info, statErr := os.Stat(archivePath); statErr == nil {
		result.FinalSize = info.Size()
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "archive_compressed"),
		logging.Int("pages", result.Pages),
		logging.Int("kept_compressed", run.stats.KeptCompressed),
		logging.Int("kept_original", run.stats.KeptOriginal),
		logging.Int64("original_bytes", run.stats.OriginalBytes),
		logging.Int64("kept_bytes", run.stats.KeptBytes),
	}
	if pct, ok := run.stats.ReductionPercent(); ok {
		attrs = append(attrs, logging.Float64("reduction_percent", -pct))
	}
	logger.Info("archive compressed", logging.Args(attrs...)...)
	return result, nil
}

func (o *Orchestrator) checkMarker(ctx context.Context, archivePath string, result *ArchiveResult) (bool, error) {
	var skip bool
	err := runStage(ctx, o.logger, stage{StageMarker, func(context.Context) error {
		if !archive.IsComicArchive(archivePath) {
			return services.Wrap(services.ErrValidation, StageMarker, "check type",
				fmt.Sprintf("%s is not a .cbz archive", filepath.Base(archivePath)), nil)
		}
		info, err := os.Stat(archivePath)
		if err != nil {
			return services.Wrap(services.ErrValidation, StageMarker, "stat", filepath.Base(archivePath), err)
		}
		if !info.Mode().IsRegular() {
			return services.Wrap(services.ErrValidation, StageMarker, "stat",
				fmt.Sprintf("%s is not a regular file", filepath.Base(archivePath)), nil)
		}
		result.OriginalSize = info.Size()
		marked, err := archive.HasCompressionLog(archivePath)
		if err != nil {
			return err
		}
		skip = marked
		return nil
	}})
	return skip, err
}

func (o *Orchestrator) prepare(context.Context) error {
	return o.layout.Prepare(o.deps.FS)
}

func (o *Orchestrator) extract(ctx context.Context, run *archiveRun) error {
	return o.deps.Codec.Extract(ctx, run.path, o.layout.Extracted)
}

func (o *Orchestrator) sanitize(ctx context.Context) error {
	report, err := o.sanitizer.Clean(ctx, o.layout.Extracted)
	if err != nil {
		return err
	}
	if len(report.Removed) > 0 || report.Flattened || report.Renamed > 0 {
		logging.WithContext(ctx, o.logger).Info("archive tree repaired",
			logging.String(logging.FieldEventType, "sanitize_repaired"),
			logging.Int("removed", len(report.Removed)),
			logging.Bool("flattened", report.Flattened),
			logging.Int("renamed", report.Renamed),
		)
	}
	return nil
}

func (o *Orchestrator) enumerate(run *archiveRun) error {
	pages, err := imaging.Enumerate(o.deps.FS, o.layout.Extracted)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return services.Wrap(services.ErrValidation, StageEnumerate, "list pages", "archive has no pages", nil)
	}
	run.pages = pages
	return nil
}

func (o *Orchestrator) compress(ctx context.Context, run *archiveRun) error {
	if err := o.deps.Compressor.CompressAll(ctx, run.pages, o.layout.Compressed); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrCodec) {
			return err
		}
		return services.Wrap(services.ErrCodec, StageCompress, "compress pages", "", err)
	}
	return nil
}

func (o *Orchestrator) selectPages(run *archiveRun) error {
	kept, err := o.opts.Keep.Select(run.pages, &run.stats)
	if err != nil {
		return err
	}
	run.kept = kept
	return nil
}

// assemble copies every kept variant into the result directory under a
// 1-based zero-padded ordinal name, keeping the variant's extension. Copies
// are size and checksum verified.
func (o *Orchestrator) assemble(run *archiveRun) error {
	width := textutil.OrdinalWidth(len(run.kept))
	run.names = make([]string, len(run.kept))
	for i, k := range run.kept {
		name := textutil.ZeroPad(strconv.Itoa(i+1), width) + "." + k.Ext()
		dst := filepath.Join(o.layout.Result, name)
		if err := fileutil.CopyFileVerified(o.deps.FS, k.Path, dst); err != nil {
			return services.Wrap(services.ErrIntegrity, StageAssemble, "copy page", name, err)
		}
		run.names[i] = name
	}
	return nil
}

func (o *Orchestrator) reconcile(ctx context.Context, run *archiveRun) error {
	entries := make([]comicinfo.PageEntry, len(run.kept))
	for i, k := range run.kept {
		entries[i] = comicinfo.PageEntry{Ordinal: i, Size: k.Size, Width: k.Width, Height: k.Height}
	}
	found, err := comicinfo.Reconcile(o.deps.FS,
		filepath.Join(o.layout.Extracted, comicinfo.FileName),
		filepath.Join(o.layout.Result, comicinfo.FileName),
		entries,
	)
	if err != nil {
		return err
	}
	logging.WithContext(ctx, o.logger).Debug("comic metadata reconciled",
		logging.String("metadata", textutil.Ternary(found, "rewritten", "absent")),
		logging.Int("pages", len(entries)),
	)
	if found {
		run.stats.MetadataPresent++
	} else {
		run.stats.MetadataMissing++
	}
	return nil
}

func (o *Orchestrator) writeLog(run *archiveRun) error {
	entry := complog.New(filepath.Base(run.path), o.deps.Clock)
	entry.Start(o.opts.logSettings())
	for i, k := range run.kept {
		desc := imaging.Describe(run.names[i], k.Width, k.Height, k.Color, k.Size)
		entry.AddPage(i+1, desc, k.Verdict.Label())
	}
	entry.Finish(run.stats)
	if err := entry.Export(o.deps.FS, filepath.Join(o.layout.Result, complog.FileName)); err != nil {
		return services.Wrap(services.ErrValidation, StageLog, "export", complog.FileName, err)
	}
	return nil
}

func (o *Orchestrator) pack(ctx context.Context, run *archiveRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	staged, err := o.deps.Codec.Pack(ctx, o.layout.Result, run.path, false)
	if err != nil {
		return err
	}
	run.staged = staged
	return nil
}

func (o *Orchestrator) commit(run *archiveRun) error {
	if err := run.staged.Commit(); err != nil {
		if archive.IsCrossDevice(err) {
			logging.ErrorWithContext(o.logger, "archive replacement crossed filesystems", "commit_cross_device",
				logging.String(logging.FieldArchive, filepath.Base(run.path)),
				logging.String(logging.FieldErrorHint, "the library directory must allow renames within itself"),
				logging.String(logging.FieldImpact, "original archive left in place"),
			)
		}
		return err
	}
	run.staged = nil
	return nil
}
