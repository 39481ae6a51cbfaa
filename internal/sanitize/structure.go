package sanitize

import (
	"fmt"
	"path/filepath"

	"cbzpress/internal/fileutil"
	"cbzpress/internal/imaging"
	"cbzpress/internal/logging"
	"cbzpress/internal/services"
)

// repairStructure reduces the tree to a flat root. A single wrapping
// directory (optionally wrapping one more directory of pages) is flattened;
// anything deeper or wider is rejected.
func (s *Sanitizer) repairStructure(root string, report *Report) error {
	top, err := s.list(root)
	if err != nil {
		return services.Wrap(services.ErrSanitization, stage, "list root", root, err)
	}
	if len(top.dirs) == 0 {
		return nil
	}
	for _, file := range top.files {
		if !imaging.IsSidecar(filepath.Base(file)) {
			return services.Wrap(services.ErrValidation, stage, "mixed root",
				fmt.Sprintf("%s sits beside a subdirectory", rel(root, file)), nil)
		}
	}

	if len(top.dirs) == 1 {
		if err := s.collapseDoubleWrap(root, top.dirs[0], report); err != nil {
			return err
		}
	}

	top, err = s.list(root)
	if err != nil {
		return services.Wrap(services.ErrSanitization, stage, "list root", root, err)
	}
	for _, dir := range top.dirs {
		inner, err := s.list(dir)
		if err != nil {
			return services.Wrap(services.ErrSanitization, stage, "list directory", rel(root, dir), err)
		}
		if len(inner.dirs) > 0 {
			return services.Wrap(services.ErrSanitization, stage, "nesting",
				fmt.Sprintf("%s contains subdirectories", rel(root, dir)), nil)
		}
	}
	if len(top.dirs) > 1 {
		return services.Wrap(services.ErrSanitization, stage, "nesting",
			fmt.Sprintf("%d directories at the archive root", len(top.dirs)), nil)
	}
	if len(top.dirs) == 1 {
		if err := s.hoist(root, top.dirs[0], root); err != nil {
			return err
		}
		report.Flattened = true
		logging.WarnWithContext(s.logger, "flattened wrapping directory", "sanitize_flattened",
			logging.String("directory", rel(root, top.dirs[0])),
			logging.String(logging.FieldErrorHint, "pages should sit at the archive root"),
			logging.String(logging.FieldImpact, "pages moved to the archive root"),
		)
	}
	return nil
}

// collapseDoubleWrap handles dir/inner/<pages>: when dir holds no files and
// exactly one subdirectory which holds files but no directories, the files
// move up into dir.
func (s *Sanitizer) collapseDoubleWrap(root, dir string, report *Report) error {
	outer, err := s.list(dir)
	if err != nil {
		return services.Wrap(services.ErrSanitization, stage, "list directory", rel(root, dir), err)
	}
	if len(outer.dirs) != 1 || len(outer.files) != 0 {
		return nil
	}
	inner, err := s.list(outer.dirs[0])
	if err != nil {
		return services.Wrap(services.ErrSanitization, stage, "list directory", rel(root, outer.dirs[0]), err)
	}
	if len(inner.dirs) != 0 || len(inner.files) == 0 {
		return nil
	}
	report.Flattened = true
	return s.hoist(root, outer.dirs[0], dir)
}

// hoist moves every file of src into dst and removes the emptied src.
func (s *Sanitizer) hoist(root, src, dst string) error {
	contents, err := s.list(src)
	if err != nil {
		return services.Wrap(services.ErrSanitization, stage, "list directory", rel(root, src), err)
	}
	for _, file := range contents.files {
		target := filepath.Join(dst, filepath.Base(file))
		if err := fileutil.MoveFile(s.fs, file, target); err != nil {
			return services.Wrap(services.ErrSanitization, stage, "move", rel(root, file), err)
		}
	}
	remaining, err := s.list(src)
	if err != nil {
		return services.Wrap(services.ErrSanitization, stage, "list directory", rel(root, src), err)
	}
	if len(remaining.dirs)+len(remaining.files) > 0 {
		return services.Wrap(services.ErrSanitization, stage, "remove directory",
			fmt.Sprintf("%s is not empty", rel(root, src)), nil)
	}
	if err := s.fs.Remove(src); err != nil {
		return services.Wrap(services.ErrSanitization, stage, "remove directory", rel(root, src), err)
	}
	return nil
}
