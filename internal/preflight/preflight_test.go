package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cbzpress/internal/config"
	"cbzpress/internal/platform"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess(platform.Detect(), "test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess(platform.Detect(), "test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckDirectoryAccess(platform.Detect(), "test", f).Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckEncoder(t *testing.T) {
	if result := CheckEncoder("jpeg", 80); !result.Passed {
		t.Fatalf("expected jpeg encoder to pass, got %s", result.Detail)
	}
	if result := CheckEncoder("bmp", 80); result.Passed {
		t.Fatal("expected unsupported format to fail")
	}
}

func TestRunAllReportsMissingScratch(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(base, "missing")
	cfg.Paths.LogDir = base
	cfg.Compression.Format = "jpeg"

	results := RunAll(context.Background(), &cfg, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Scratch directory" {
		t.Fatalf("expected only scratch check to fail, got %+v", failed)
	}
}
