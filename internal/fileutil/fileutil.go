// Package fileutil holds the filesystem primitives the pipeline builds on.
// Every helper takes an afero.Fs so sanitizer and staging tests can run
// against an in-memory filesystem.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// ErrDestinationExists is returned when a move would overwrite an existing path.
var ErrDestinationExists = errors.New("destination already exists")

// CopyFile streams src to dst with default permissions (0o644).
func CopyFile(fsys afero.Fs, src, dst string) error {
	return CopyFileMode(fsys, src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(fsys afero.Fs, src, dst string, mode os.FileMode) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyFileVerified copies src to dst, then re-reads dst and compares its size
// and SHA256 with the source. dst is removed on mismatch.
func CopyFileVerified(fsys afero.Fs, src, dst string) error {
	srcInfo, err := fsys.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if err := CopyFile(fsys, src, dst); err != nil {
		return err
	}

	srcSum, err := fileSum(fsys, src)
	if err != nil {
		return err
	}
	dstSum, err := fileSum(fsys, dst)
	if err != nil {
		return err
	}
	dstInfo, err := fsys.Stat(dst)
	if err != nil {
		return fmt.Errorf("stat destination: %w", err)
	}
	if dstInfo.Size() != srcInfo.Size() {
		_ = fsys.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), dstInfo.Size())
	}
	if !bytes.Equal(srcSum, dstSum) {
		_ = fsys.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

func fileSum(fsys afero.Fs, path string) ([]byte, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash %s: %w", filepath.Base(path), err)
	}
	return h.Sum(nil), nil
}

// MoveFile renames src to dst, refusing to replace an existing dst.
func MoveFile(fsys afero.Fs, src, dst string) error {
	if _, err := fsys.Stat(dst); err == nil {
		return fmt.Errorf("move %s: %w: %s", filepath.Base(src), ErrDestinationExists, dst)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat destination: %w", err)
	}
	return fsys.Rename(src, dst)
}

// WipeDir removes dir and everything below it, then recreates it empty.
func WipeDir(fsys afero.Fs, dir string) error {
	if err := fsys.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// ListFiles returns regular files under dir in lexical order of their paths.
// Without recursive only direct children are listed.
func ListFiles(fsys afero.Fs, dir string, recursive bool) ([]string, error) {
	var files []string
	if !recursive {
		entries, err := afero.ReadDir(fsys, dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.Mode().IsRegular() {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}
	err := afero.Walk(fsys, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// DirSize sums the sizes of regular files under dir.
func DirSize(fsys afero.Fs, dir string) (int64, error) {
	var total int64
	err := afero.Walk(fsys, dir, func(_ string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
