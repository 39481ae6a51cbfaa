package imaging

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Classification is the colour class assigned to a page.
type Classification int

const (
	Undetermined Classification = iota
	Color
	Grayscale
)

func (c Classification) String() string {
	switch c {
	case Color:
		return "Color"
	case Grayscale:
		return "Grayscale"
	default:
		return "Undefined"
	}
}

// Variant is a recompressed rendition of a page.
type Variant struct {
	Path   string
	Size   int64
	Width  int
	Height int
	Color  Classification
}

// Name returns the variant's file name.
func (v *Variant) Name() string { return filepath.Base(v.Path) }

// Ext returns the variant's lowercase extension without the dot.
func (v *Variant) Ext() string { return extOf(v.Path) }

// Describe renders the variant for the compression log.
func (v *Variant) Describe() string {
	return Describe(v.Name(), v.Width, v.Height, v.Color, v.Size)
}

// Page is one raster image of a sanitized archive tree.
type Page struct {
	Ordinal    int
	Name       string
	Path       string
	Width      int
	Height     int
	Size       int64
	Color      Classification
	Compressed *Variant
}

// Ext returns the page's lowercase extension without the dot.
func (p *Page) Ext() string { return extOf(p.Name) }

// Describe renders the page for the compression log.
func (p *Page) Describe() string {
	return Describe(p.Name, p.Width, p.Height, p.Color, p.Size)
}

// Describe formats the one-line page description used in compression logs.
func Describe(name string, width, height int, color Classification, size int64) string {
	return fmt.Sprintf("%s - Dimensions: %dx%d, Color: %s, Size %d bytes", name, width, height, color, size)
}

var supportedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"bmp":  true,
	"tif":  true,
	"tiff": true,
	"webp": true,
}

// IsSupported reports whether name carries a supported raster extension.
func IsSupported(name string) bool {
	return supportedExtensions[extOf(name)]
}

func extOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
