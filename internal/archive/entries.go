package archive

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"cbzpress/internal/complog"
	"cbzpress/internal/services"
	"cbzpress/internal/textutil"
)

// Entry describes one member of an archive.
type Entry struct {
	Name           string
	Size           uint64
	CompressedSize uint64
	Mode           fs.FileMode
	Modified       time.Time
}

// List returns the archive's entries in stored order.
func List(path string) ([]Entry, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIntegrity, "inspect", "open archive", filepath.Base(path), err)
	}
	defer reader.Close()

	entries := make([]Entry, 0, len(reader.File))
	for _, f := range reader.File {
		entries = append(entries, Entry{
			Name:           textutil.NormalizeName(f.Name),
			Size:           f.UncompressedSize64,
			CompressedSize: f.CompressedSize64,
			Mode:           f.Mode(),
			Modified:       f.Modified,
		})
	}
	return entries, nil
}

// HasRootEntry reports whether the archive holds name at its root.
func HasRootEntry(path, name string) (bool, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return false, services.Wrap(services.ErrIntegrity, "inspect", "open archive", filepath.Base(path), err)
	}
	defer reader.Close()
	return findRoot(reader.File, name) != nil, nil
}

// HasCompressionLog reports whether the archive was already processed.
func HasCompressionLog(path string) (bool, error) {
	return HasRootEntry(path, complog.FileName)
}

// ReadEntry returns the contents of the root-level entry name.
func ReadEntry(path, name string) ([]byte, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIntegrity, "inspect", "open archive", filepath.Base(path), err)
	}
	defer reader.Close()

	f := findRoot(reader.File, name)
	if f == nil {
		return nil, fmt.Errorf("%s in %s: %w", name, filepath.Base(path), fs.ErrNotExist)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, services.Wrap(services.ErrIntegrity, "inspect", "open entry", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, services.Wrap(services.ErrIntegrity, "inspect", "read entry", name, err)
	}
	return data, nil
}

func findRoot(files []*zip.File, name string) *zip.File {
	for _, f := range files {
		entry := textutil.NormalizeName(f.Name)
		if strings.Contains(strings.TrimSuffix(entry, "/"), "/") {
			continue
		}
		if entry == name {
			return f
		}
	}
	return nil
}
