package imaging

import (
	"fmt"
	"image"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"cbzpress/internal/comicinfo"
	"cbzpress/internal/complog"
	"cbzpress/internal/services"
)

// IsSidecar reports whether name is one of the non-page files an archive may
// legitimately carry. The match is case-sensitive.
func IsSidecar(name string) bool {
	return name == comicinfo.FileName || name == complog.FileName
}

// Enumerate lists the pages directly under root in lexicographic filename
// order and assigns ordinals 0..n-1. Dimensions are read from the image
// header without decoding pixels. Any entry that is neither a supported image
// nor an expected sidecar is a validation error.
func Enumerate(fsys afero.Fs, root string) ([]*Page, error) {
	entries, err := afero.ReadDir(fsys, root)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "enumerate", "read dir", root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	pages := make([]*Page, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			return nil, services.Wrap(services.ErrValidation, "enumerate", "unexpected directory", name, nil)
		}
		if IsSidecar(name) {
			continue
		}
		if !IsSupported(name) {
			return nil, services.Wrap(services.ErrValidation, "enumerate", "unexpected file", name, nil)
		}
		path := filepath.Join(root, name)
		cfg, err := decodeConfig(fsys, path)
		if err != nil {
			return nil, err
		}
		pages = append(pages, &Page{
			Ordinal: len(pages),
			Name:    name,
			Path:    path,
			Width:   cfg.Width,
			Height:  cfg.Height,
			Size:    entry.Size(),
		})
	}
	return pages, nil
}

func decodeConfig(fsys afero.Fs, path string) (image.Config, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return image.Config{}, services.Wrap(services.ErrCodec, "enumerate", "open", filepath.Base(path), err)
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return image.Config{}, services.Wrap(services.ErrCodec, "enumerate", "decode header", filepath.Base(path), err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, services.Wrap(services.ErrCodec, "enumerate", "decode header",
			fmt.Sprintf("%s: %s reports %dx%d", filepath.Base(path), format, cfg.Width, cfg.Height), nil)
	}
	return cfg, nil
}
