package testsupport

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

// ArchiveEntry describes one member written by WriteArchive. Names are used
// verbatim so hostile names ("../x", "/etc/x") can be produced.
type ArchiveEntry struct {
	Name string
	Data []byte
	// Store disables compression so tests can corrupt payload bytes in place.
	Store bool
	Mode  fs.FileMode
}

// WriteArchive writes entries, in order, to a zip at path.
func WriteArchive(t testing.TB, path string, entries []ArchiveEntry) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, entry := range entries {
		header := &zip.FileHeader{Name: entry.Name, Method: zip.Deflate, Modified: modified}
		if entry.Store {
			header.Method = zip.Store
		}
		if entry.Mode != 0 {
			header.SetMode(entry.Mode)
		}
		fw, err := w.CreateHeader(header)
		if err != nil {
			t.Fatalf("create entry %s: %v", entry.Name, err)
		}
		if _, err := fw.Write(entry.Data); err != nil {
			t.Fatalf("write entry %s: %v", entry.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive %s: %v", path, err)
	}
}

// CorruptArchive flips the first byte of the first occurrence of payload in
// the archive file, which breaks the CRC of a stored entry.
func CorruptArchive(t testing.TB, path string, payload []byte) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	idx := bytes.Index(data, payload)
	if idx < 0 {
		t.Fatalf("payload not found in %s", path)
	}
	data[idx] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("rewrite archive: %v", err)
	}
}

// ArchiveNames returns the entry names stored in the archive at path.
func ArchiveNames(t testing.TB, path string) []string {
	t.Helper()

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive %s: %v", path, err)
	}
	defer r.Close()
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}
