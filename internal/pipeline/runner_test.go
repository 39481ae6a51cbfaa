package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"cbzpress/internal/complog"
	"cbzpress/internal/history"
	"cbzpress/internal/pipeline"
	"cbzpress/internal/services"
	"cbzpress/internal/staging"
	"cbzpress/internal/testsupport"
)

func writeComic(t *testing.T, path string, pages int) {
	t.Helper()
	var entries []testsupport.ArchiveEntry
	for i := 0; i < pages; i++ {
		entries = append(entries, testsupport.ArchiveEntry{
			Name: string(rune('a'+i)) + ".png",
			Data: testsupport.EncodePNG(t, testsupport.NoiseImage(16, 24, uint64(i+1))),
		})
	}
	testsupport.WriteArchive(t, path, entries)
}

func newRunner(t *testing.T, opts pipeline.Options, ledger *history.Store) *pipeline.Runner {
	t.Helper()
	return pipeline.NewRunner(opts, pipeline.Dependencies{
		Compressor: &sizedCompressor{},
		Clock:      fixedClock,
	}, ledger)
}

func TestRunAggregatesOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	opts := pipeline.OptionsFromConfig(cfg)
	ledger := testsupport.MustOpenHistory(t, cfg)
	runner := newRunner(t, opts, ledger)

	base := testsupport.BaseDir(cfg)
	good := filepath.Join(base, "lib", "good.cbz")
	done := filepath.Join(base, "lib", "done.cbz")
	broken := filepath.Join(base, "lib", "broken.cbz")
	writeComic(t, good, 2)
	testsupport.WriteArchive(t, done, []testsupport.ArchiveEntry{
		{Name: "01.jpg", Data: testsupport.EncodeJPEG(t, testsupport.NoiseImage(8, 8, 1), 50)},
		{Name: complog.FileName, Data: []byte("log\n")},
	})
	testsupport.WriteFile(t, broken, 256)

	var observed []string
	report, err := runner.Run(context.Background(), []string{good, done, broken}, func(n, total int, result pipeline.ArchiveResult) {
		if total != 3 {
			t.Errorf("unexpected total %d", total)
		}
		observed = append(observed, filepath.Base(result.Path))
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID == "" {
		t.Fatal("expected run id")
	}
	st := report.Stats
	if st.TotalArchives != 3 || st.Succeeded != 1 || st.AlreadyCompressed != 1 || st.Failed != 1 {
		t.Fatalf("unexpected archive counters: %+v", st)
	}
	if st.KeptCompressed != 2 {
		t.Fatalf("expected 2 compressed pages from the good archive, got %+v", st)
	}
	if strings.Join(observed, ",") != "good.cbz,done.cbz,broken.cbz" {
		t.Fatalf("unexpected observer order: %v", observed)
	}
	if failures := report.Failures(); len(failures) != 1 || failures[0].Path != broken {
		t.Fatalf("unexpected failures: %+v", failures)
	}

	entries, err := ledger.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(entries))
	}
	counts, err := ledger.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[history.StatusCompressed] != 1 || counts[history.StatusSkipped] != 1 || counts[history.StatusFailed] != 1 {
		t.Fatalf("unexpected history counts: %v", counts)
	}
	for _, e := range entries {
		if e.RunID != report.RunID {
			t.Fatalf("history entry has run id %q, want %q", e.RunID, report.RunID)
		}
		if e.Status == history.StatusFailed && e.ErrorKind != "integrity" {
			t.Fatalf("expected integrity error kind, got %q", e.ErrorKind)
		}
	}

	dirs, err := os.ReadDir(cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	for _, d := range dirs {
		if strings.HasPrefix(d.Name(), staging.RunPrefix) {
			t.Fatalf("scratch run directory left behind: %s", d.Name())
		}
	}
}

func TestRunRefusesConcurrentBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	opts := pipeline.OptionsFromConfig(cfg)
	runner := newRunner(t, opts, nil)

	lock := flock.New(filepath.Join(cfg.Paths.ScratchDir, pipeline.LockFileName))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("test lock: ok=%v err=%v", ok, err)
	}
	defer func() { _ = lock.Unlock() }()

	good := filepath.Join(testsupport.BaseDir(cfg), "good.cbz")
	writeComic(t, good, 1)
	if _, err := runner.Run(context.Background(), []string{good}, nil); !errors.Is(err, pipeline.ErrBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}
	if names := testsupport.ArchiveNames(t, good); len(names) != 1 || names[0] != "a.png" {
		t.Fatalf("archive touched while locked: %v", names)
	}
}

func TestRunHaltsOnCriticalFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHaltOnCritical())
	opts := pipeline.OptionsFromConfig(cfg)
	runner := newRunner(t, opts, nil)

	base := testsupport.BaseDir(cfg)
	broken := filepath.Join(base, "a-broken.cbz")
	good := filepath.Join(base, "b-good.cbz")
	testsupport.WriteFile(t, broken, 128)
	writeComic(t, good, 1)

	report, err := runner.Run(context.Background(), []string{broken, good}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Halted {
		t.Fatal("expected batch to halt")
	}
	if len(report.Results) != 1 {
		t.Fatalf("expected one processed archive, got %d", len(report.Results))
	}
	if !errors.Is(report.Results[0].Err, services.ErrIntegrity) {
		t.Fatalf("expected integrity failure, got %v", report.Results[0].Err)
	}
	if names := testsupport.ArchiveNames(t, good); len(names) != 1 {
		t.Fatalf("second archive should be untouched, got %v", names)
	}
}

func TestRunContinuesPastFailuresByDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	opts := pipeline.OptionsFromConfig(cfg)
	runner := newRunner(t, opts, nil)

	base := testsupport.BaseDir(cfg)
	broken := filepath.Join(base, "a-broken.cbz")
	good := filepath.Join(base, "b-good.cbz")
	testsupport.WriteFile(t, broken, 128)
	writeComic(t, good, 1)

	report, err := runner.Run(context.Background(), []string{broken, good}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Halted || len(report.Results) != 2 {
		t.Fatalf("expected both archives processed, halted=%v results=%d", report.Halted, len(report.Results))
	}
	if report.Results[1].Outcome != pipeline.OutcomeCompressed {
		t.Fatalf("expected second archive compressed, got %s", report.Results[1].Outcome)
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	opts := pipeline.OptionsFromConfig(cfg)
	runner := newRunner(t, opts, nil)

	good := filepath.Join(testsupport.BaseDir(cfg), "good.cbz")
	writeComic(t, good, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := runner.Run(ctx, []string{good}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(report.Results) != 0 {
		t.Fatalf("expected no results, got %d", len(report.Results))
	}
}

func TestDiscover(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := newRunner(t, pipeline.OptionsFromConfig(cfg), nil)

	root := filepath.Join(testsupport.BaseDir(cfg), "library")
	top := filepath.Join(root, "b.cbz")
	nested := filepath.Join(root, "series", "a.CBZ")
	writeComic(t, top, 1)
	writeComic(t, nested, 1)
	testsupport.WriteFile(t, filepath.Join(root, "notes.txt"), 4)

	all, err := runner.Discover([]string{root}, true)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(all) != 2 || all[0] != top || all[1] != nested {
		t.Fatalf("unexpected recursive discovery: %v", all)
	}

	shallow, err := runner.Discover([]string{root, top}, false)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(shallow) != 1 || shallow[0] != top {
		t.Fatalf("unexpected shallow discovery: %v", shallow)
	}

	explicit := filepath.Join(root, "notes.txt")
	files, err := runner.Discover([]string{explicit}, true)
	if err != nil || len(files) != 1 || files[0] != explicit {
		t.Fatalf("explicit files should pass through: %v %v", files, err)
	}

	if _, err := runner.Discover([]string{filepath.Join(root, "missing")}, true); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestPlan(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := newRunner(t, pipeline.OptionsFromConfig(cfg), nil)

	base := testsupport.BaseDir(cfg)
	good := filepath.Join(base, "good.cbz")
	done := filepath.Join(base, "done.cbz")
	text := filepath.Join(base, "notes.txt")
	writeComic(t, good, 1)
	testsupport.WriteArchive(t, done, []testsupport.ArchiveEntry{{Name: complog.FileName, Data: []byte("x")}})
	testsupport.WriteFile(t, text, 3)

	plan := runner.Plan([]string{good, done, text})
	want := []pipeline.PlanAction{pipeline.PlanCompress, pipeline.PlanSkip, pipeline.PlanInvalid}
	if len(plan) != len(want) {
		t.Fatalf("unexpected plan length %d", len(plan))
	}
	for i, entry := range plan {
		if entry.Action != want[i] {
			t.Fatalf("plan[%d]: got %s want %s (%s)", i, entry.Action, want[i], entry.Reason)
		}
	}
	if plan[0].Size == 0 {
		t.Fatal("expected archive size in plan")
	}
}
