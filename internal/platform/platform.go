// Package platform isolates the few filesystem behaviours that differ between
// operating systems: access probing and permission normalization after
// extraction.
package platform

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Strategy is selected once at startup by Detect.
type Strategy interface {
	Name() string
	// FixPermissions normalizes modes on everything below root so extracted
	// files are readable regardless of the modes stored in the archive.
	FixPermissions(root string) error
	// CheckAccess reports whether path is a directory the process can read,
	// write, and traverse.
	CheckAccess(path string) error
}

// Detect returns the strategy for the running platform.
func Detect() Strategy {
	return detect()
}

func statDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

func chmodTree(root string, dirMode, fileMode os.FileMode) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.Chmod(path, dirMode)
		case d.Type().IsRegular():
			return os.Chmod(path, fileMode)
		default:
			return nil
		}
	})
}
