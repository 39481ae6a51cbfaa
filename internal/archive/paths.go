package archive

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"cbzpress/internal/textutil"
)

// IsComicArchive reports whether path names a comic zip archive. AppleDouble
// companions ("._Vol 01.cbz") are not archives.
func IsComicArchive(p string) bool {
	base := filepath.Base(p)
	if strings.HasPrefix(base, "._") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".cbz")
}

// entryName returns the cleaned, slash-separated form of a raw entry name or
// an error when the name could escape the extraction root.
func entryName(raw string) (string, error) {
	name := textutil.NormalizeName(raw)
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("empty entry name")
	}
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("absolute entry name %q", raw)
	}
	if len(name) >= 2 && name[1] == ':' && isASCIILetter(name[0]) {
		return "", fmt.Errorf("drive-qualified entry name %q", raw)
	}
	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("entry %q escapes extraction root", raw)
	}
	return cleaned, nil
}

// entryTarget resolves name beneath destDir and re-checks containment on the
// OS-specific path.
func entryTarget(destDir, name string) (string, error) {
	root := filepath.Clean(destDir)
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q resolves outside %s", name, destDir)
	}
	return target, nil
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
