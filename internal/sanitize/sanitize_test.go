package sanitize_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/afero"

	"cbzpress/internal/fileutil"
	"cbzpress/internal/logging"
	"cbzpress/internal/sanitize"
	"cbzpress/internal/services"
)

const root = "/tree"

func build(t *testing.T, names ...string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir root: %v", err)
	}
	for _, name := range names {
		if err := afero.WriteFile(fsys, filepath.Join(root, name), []byte(name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return fsys
}

func tree(t *testing.T, fsys afero.Fs) []string {
	t.Helper()
	files, err := fileutil.ListFiles(fsys, root, true)
	if err != nil {
		t.Fatalf("list tree: %v", err)
	}
	out := make([]string, len(files))
	for i, file := range files {
		rel, _ := filepath.Rel(root, file)
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func clean(t *testing.T, fsys afero.Fs) (sanitize.Report, error) {
	t.Helper()
	return sanitize.New(fsys, logging.NewNop()).Clean(context.Background(), root)
}

func TestCleanRemovesJunkAndNonPageFiles(t *testing.T) {
	fsys := build(t,
		"01.jpg", "02.jpg",
		".DS_Store", "Thumbs.db", "._01.jpg",
		"__MACOSX/._02.jpg",
		"release.nfo", "scan.TXT", "index.html",
		"ComicInfo.xml", "CompressionLog.txt",
	)

	report, err := clean(t, fsys)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	want := []string{"01.jpg", "02.jpg", "ComicInfo.xml", "CompressionLog.txt"}
	if got := tree(t, fsys); !slices.Equal(got, want) {
		t.Fatalf("unexpected tree: %v", got)
	}
	if len(report.Removed) != 7 {
		t.Fatalf("expected 7 removals, got %v", report.Removed)
	}
	if exists, _ := afero.DirExists(fsys, filepath.Join(root, "__MACOSX")); exists {
		t.Fatal("expected __MACOSX to be removed")
	}
}

func TestCleanRejectsUnexpectedFile(t *testing.T) {
	fsys := build(t, "01.jpg", "bonus.pdf")
	if _, err := clean(t, fsys); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := tree(t, fsys); !slices.Contains(got, "bonus.pdf") {
		t.Fatal("unexpected file must not be deleted")
	}
}

func TestCleanRejectsMisnamedSidecars(t *testing.T) {
	for _, name := range []string{"ComicInfo.XML", "comicinfo.xml", "notes.xml", "reader.db", "scan.log"} {
		fsys := build(t, "01.jpg", "02.jpg", name)
		report, err := clean(t, fsys)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
		if len(report.Removed) != 0 {
			t.Fatalf("%s: nothing should be removed, got %v", name, report.Removed)
		}
		if got := tree(t, fsys); !slices.Contains(got, name) {
			t.Fatalf("%s: file must be left in place, tree=%v", name, got)
		}
	}
}

func TestCleanFlattensSingleDirectory(t *testing.T) {
	fsys := build(t, "Vol 1/01.jpg", "Vol 1/02.jpg", "Vol 1/ComicInfo.xml")
	report, err := clean(t, fsys)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if !report.Flattened {
		t.Fatal("expected flatten to be reported")
	}
	want := []string{"01.jpg", "02.jpg", "ComicInfo.xml"}
	if got := tree(t, fsys); !slices.Equal(got, want) {
		t.Fatalf("unexpected tree: %v", got)
	}
	if exists, _ := afero.DirExists(fsys, filepath.Join(root, "Vol 1")); exists {
		t.Fatal("expected wrapping directory to be removed")
	}
}

func TestCleanCollapsesDoubleWrap(t *testing.T) {
	fsys := build(t, "Series/Vol 1/01.jpg", "Series/Vol 1/02.jpg")
	if _, err := clean(t, fsys); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if got := tree(t, fsys); !slices.Equal(got, []string{"01.jpg", "02.jpg"}) {
		t.Fatalf("unexpected tree: %v", got)
	}
}

func TestCleanStructuralFailures(t *testing.T) {
	cases := map[string][]string{
		"two roots":      {"a/01.jpg", "b/02.jpg"},
		"deep nesting":   {"a/b/c/01.jpg"},
		"wide nesting":   {"a/b/01.jpg", "a/c/02.jpg"},
		"files and dirs": {"a/01.jpg", "a/b/02.jpg"},
	}
	for name, files := range cases {
		fsys := build(t, files...)
		if _, err := clean(t, fsys); !errors.Is(err, services.ErrSanitization) {
			t.Fatalf("%s: expected sanitization error, got %v", name, err)
		}
	}
}

func TestCleanMixedRootIsValidationFailure(t *testing.T) {
	fsys := build(t, "cover.jpg", "pages/01.jpg")
	_, err := clean(t, fsys)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.IsCritical(err) {
		t.Fatal("a stray root page must not be critical")
	}
	if got := tree(t, fsys); !slices.Equal(got, []string{"cover.jpg", "pages/01.jpg"}) {
		t.Fatalf("tree changed: %v", got)
	}
}

func TestCleanFlattenCollision(t *testing.T) {
	fsys := build(t, "ComicInfo.xml", "pages/ComicInfo.xml", "pages/01.jpg")
	if _, err := clean(t, fsys); !errors.Is(err, services.ErrSanitization) {
		t.Fatalf("expected sanitization error, got %v", err)
	}
}

func TestCleanPadsNumericNames(t *testing.T) {
	for n := 1; n <= 15; n++ {
		var names []string
		for i := 1; i <= n; i++ {
			names = append(names, fmt.Sprintf("%d.jpg", i))
		}
		fsys := build(t, names...)

		report, err := clean(t, fsys)
		if err != nil {
			t.Fatalf("n=%d: Clean: %v", n, err)
		}
		got := tree(t, fsys)
		if len(got) != n {
			t.Fatalf("n=%d: expected %d files, got %v", n, n, got)
		}
		for i, name := range got {
			if want := fmt.Sprintf("%02d.jpg", i+1); name != want {
				t.Fatalf("n=%d: position %d is %s want %s", n, i, name, want)
			}
		}
		wantRenamed := min(n, 9)
		if report.Renamed != wantRenamed {
			t.Fatalf("n=%d: expected %d renames, got %d", n, wantRenamed, report.Renamed)
		}
	}
}

func TestCleanLeavesPaddedNamesAlone(t *testing.T) {
	fsys := build(t, "01.jpg", "02.jpg", "page-a.jpg")
	report, err := clean(t, fsys)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if report.Renamed != 0 {
		t.Fatalf("expected no renames, got %d", report.Renamed)
	}
}

func TestCleanPaddingFailures(t *testing.T) {
	cases := map[string][]string{
		"non numeric": {"1.jpg", "cover.jpg"},
		"extra dots":  {"1.jpg", "2.v2.jpg"},
		"collision":   {"1.jpg", "01.png", "1.png"},
	}
	for name, files := range cases {
		fsys := build(t, files...)
		before := tree(t, fsys)
		if _, err := clean(t, fsys); !errors.Is(err, services.ErrSanitization) {
			t.Fatalf("%s: expected sanitization error, got %v", name, err)
		}
		if after := tree(t, fsys); !slices.Equal(before, after) {
			t.Fatalf("%s: tree changed on failure: %v -> %v", name, before, after)
		}
	}
}

func TestCleanHonoursCancellation(t *testing.T) {
	fsys := build(t, "01.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sanitize.New(fsys, nil).Clean(ctx, root); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
