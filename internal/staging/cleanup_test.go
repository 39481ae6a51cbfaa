package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"cbzpress/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	fsys := afero.NewOsFs()
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), fsys, dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldRunDirectories(t *testing.T) {
	fsys := afero.NewOsFs()
	tmpDir := t.TempDir()
	oldTime := time.Now().Add(-2 * time.Hour)

	oldRun := filepath.Join(tmpDir, "run-old")
	foreign := filepath.Join(tmpDir, "keep-me")
	for _, dir := range []string{oldRun, foreign} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("create dir: %v", err)
		}
		if err := os.Chtimes(dir, oldTime, oldTime); err != nil {
			t.Fatalf("set old time: %v", err)
		}
	}
	recentRun := filepath.Join(tmpDir, "run-recent")
	if err := os.Mkdir(recentRun, 0o755); err != nil {
		t.Fatalf("create recent dir: %v", err)
	}

	result := CleanStale(context.Background(), fsys, tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldRun {
		t.Fatalf("expected only %s removed, got %v", oldRun, result.Removed)
	}
	if _, err := os.Stat(oldRun); !os.IsNotExist(err) {
		t.Error("old run directory should have been removed")
	}
	for _, dir := range []string{recentRun, foreign} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("%s should still exist", dir)
		}
	}
}

func TestLayoutPrepareAndWipe(t *testing.T) {
	fsys := afero.NewMemMapFs()
	layout := NewLayout(RunDir("/scratch", "abc"))
	if layout.Root != "/scratch/run-abc" {
		t.Fatalf("unexpected root %q", layout.Root)
	}
	_ = afero.WriteFile(fsys, filepath.Join(layout.Extracted, "leftover.jpg"), []byte("x"), 0o644)

	if err := layout.Prepare(fsys); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	for _, dir := range []string{layout.Extracted, layout.Compressed, layout.Result} {
		empty, err := afero.IsEmpty(fsys, dir)
		if err != nil || !empty {
			t.Fatalf("expected %s empty after Prepare (err=%v)", dir, err)
		}
	}

	dirs, err := ListDirectories(fsys, "/scratch")
	if err != nil || len(dirs) != 1 || dirs[0].Name != "run-abc" {
		t.Fatalf("ListDirectories = %v, %v", dirs, err)
	}

	if err := layout.Wipe(fsys); err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if ok, _ := afero.Exists(fsys, layout.Root); ok {
		t.Fatal("expected root removed")
	}
}
