package sanitize

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"cbzpress/internal/fileutil"
	"cbzpress/internal/imaging"
	"cbzpress/internal/logging"
	"cbzpress/internal/services"
)

const stage = "sanitize"

var (
	junkFiles = map[string]bool{
		".DS_Store":  true,
		"Thumbs.db":  true,
		"Thumbs1.db": true,
	}
	junkDirs = map[string]bool{
		"__MACOSX": true,
	}
	// Anything else that is not a page or an expected sidecar, including
	// case variants of the sidecar names, needs manual cleanup.
	deleteExtensions = map[string]bool{
		"txt": true, "url": true, "nfo": true, "html": true,
		"sfv": true, "rtf": true, "ini": true, "dat": true, "css": true,
	}
)

// Report summarizes what Clean changed.
type Report struct {
	// Removed lists deleted paths relative to the tree root.
	Removed   []string
	Flattened bool
	Renamed   int
}

// Sanitizer cleans extracted trees on a filesystem.
type Sanitizer struct {
	fs     afero.Fs
	logger *slog.Logger
}

// New returns a Sanitizer operating on fsys.
func New(fsys afero.Fs, logger *slog.Logger) *Sanitizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sanitizer{fs: fsys, logger: logger}
}

// Clean sanitizes the tree rooted at root in place.
func (s *Sanitizer) Clean(ctx context.Context, root string) (Report, error) {
	var report Report
	steps := []func(string, *Report) error{
		s.removeJunkDirs,
		s.sweepFiles,
		s.repairStructure,
		s.repairPadding,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := step(root, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *Sanitizer) removeJunkDirs(root string, report *Report) error {
	var doomed []string
	err := afero.Walk(s.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != root && junkDirs[info.Name()] {
			doomed = append(doomed, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrSanitization, stage, "walk", root, err)
	}
	for _, dir := range doomed {
		if err := s.fs.RemoveAll(dir); err != nil {
			return services.Wrap(services.ErrSanitization, stage, "remove junk directory", rel(root, dir), err)
		}
		s.removed(root, dir, report, "junk directory")
	}
	return nil
}

// sweepFiles removes junk and known non-page files and rejects anything that
// is left which is neither a page nor a sidecar.
func (s *Sanitizer) sweepFiles(root string, report *Report) error {
	files, err := fileutil.ListFiles(s.fs, root, true)
	if err != nil {
		return services.Wrap(services.ErrSanitization, stage, "list files", root, err)
	}
	for _, path := range files {
		name := filepath.Base(path)
		switch {
		case isJunk(name):
			if err := s.remove(root, path, report, "junk file"); err != nil {
				return err
			}
		case imaging.IsSidecar(name):
			// kept
		case deleteExtensions[extension(name)]:
			if err := s.remove(root, path, report, "non-page file"); err != nil {
				return err
			}
		case !imaging.IsSupported(name):
			return services.Wrap(services.ErrValidation, stage, "unexpected file",
				rel(root, path)+" requires manual cleanup", nil)
		}
	}
	return nil
}

func (s *Sanitizer) remove(root, path string, report *Report, reason string) error {
	if err := s.fs.Remove(path); err != nil {
		return services.Wrap(services.ErrSanitization, stage, "remove "+reason, rel(root, path), err)
	}
	s.removed(root, path, report, reason)
	return nil
}

func (s *Sanitizer) removed(root, path string, report *Report, reason string) {
	report.Removed = append(report.Removed, rel(root, path))
	logging.WarnWithContext(s.logger, "removed "+reason, "sanitize_removed",
		logging.String("entry", rel(root, path)),
		logging.String(logging.FieldErrorHint, "clean the source archive to silence this warning"),
		logging.String(logging.FieldImpact, "entry will be missing from the rewritten archive"),
	)
}

func isJunk(name string) bool {
	return junkFiles[name] || strings.HasPrefix(name, "._")
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func rel(root, path string) string {
	if r, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}

type listing struct {
	dirs  []string
	files []string
}

func (s *Sanitizer) list(dir string) (listing, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return listing{}, err
	}
	var l listing
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			l.dirs = append(l.dirs, path)
		} else {
			l.files = append(l.files, path)
		}
	}
	slices.Sort(l.dirs)
	slices.Sort(l.files)
	return l, nil
}
