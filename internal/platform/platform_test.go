//go:build unix

package platform_test

import (
	"os"
	"path/filepath"
	"testing"

	"cbzpress/internal/platform"
)

func TestFixPermissionsNormalizesModes(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "chapter")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatal(err)
	}
	page := filepath.Join(sub, "01.jpg")
	if err := os.WriteFile(page, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	strategy := platform.Detect()
	if strategy.Name() != "unix" {
		t.Fatalf("unexpected strategy %q", strategy.Name())
	}
	if err := strategy.FixPermissions(root); err != nil {
		t.Fatalf("FixPermissions: %v", err)
	}
	info, err := os.Stat(page)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("file mode = %v, want 0644", info.Mode().Perm())
	}
	info, err = os.Stat(sub)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Fatalf("dir mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestCheckAccess(t *testing.T) {
	strategy := platform.Detect()
	dir := t.TempDir()
	if err := strategy.CheckAccess(dir); err != nil {
		t.Fatalf("CheckAccess on temp dir: %v", err)
	}
	if err := strategy.CheckAccess(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing dir")
	}
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := strategy.CheckAccess(file); err == nil {
		t.Fatal("expected error for regular file")
	}
}
