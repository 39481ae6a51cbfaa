// Package keep chooses, per page, whether the recompressed variant or the
// original goes into the output archive.
package keep

import (
	"fmt"

	"cbzpress/internal/complog"
	"cbzpress/internal/imaging"
	"cbzpress/internal/services"
	"cbzpress/internal/stats"
)

// Verdict records which variant of a page was kept and why.
type Verdict int

const (
	KeptOriginal Verdict = iota
	KeptCompressed
	AlwaysCompressed
)

// Compressed reports whether the verdict selects the recompressed variant.
func (v Verdict) Compressed() bool { return v != KeptOriginal }

// Label is the verdict text written to the compression log.
func (v Verdict) Label() string {
	switch v {
	case KeptCompressed:
		return complog.VerdictCompressed
	case AlwaysCompressed:
		return complog.VerdictAlwaysCompressed
	default:
		return complog.VerdictOriginal
	}
}

func (v Verdict) String() string {
	switch v {
	case KeptCompressed:
		return "compressed"
	case AlwaysCompressed:
		return "always-compressed"
	default:
		return "original"
	}
}

// Engine applies the size-keep rule.
type Engine struct {
	// ThresholdPercent is the share of the original size the compressed
	// variant must stay strictly under to be kept.
	ThresholdPercent     int
	AlwaysKeepCompressed bool
}

// Decide picks a variant given the original and compressed byte sizes.
func (e Engine) Decide(original, compressed int64) Verdict {
	if e.AlwaysKeepCompressed {
		return AlwaysCompressed
	}
	if compressed*100 < original*int64(e.ThresholdPercent) {
		return KeptCompressed
	}
	return KeptOriginal
}

// Kept is the variant selected for one page.
type Kept struct {
	Page    *imaging.Page
	Verdict Verdict
	Path    string
	Size    int64
	Width   int
	Height  int
	Color   imaging.Classification
}

// Ext is the kept file's extension without the dot.
func (k Kept) Ext() string {
	if k.Verdict.Compressed() {
		return k.Page.Compressed.Ext()
	}
	return k.Page.Ext()
}

// Select decides every page and folds byte totals and kept counts into st.
// Every page must already carry a compressed variant.
func (e Engine) Select(pages []*imaging.Page, st *stats.CompressionStats) ([]Kept, error) {
	kept := make([]Kept, 0, len(pages))
	var local stats.CompressionStats
	for _, page := range pages {
		variant := page.Compressed
		if variant == nil {
			return nil, services.Wrap(services.ErrCodec, "select", "missing variant", fmt.Sprintf("page %s", page.Name), nil)
		}

		verdict := e.Decide(page.Size, variant.Size)
		k := Kept{Page: page, Verdict: verdict}
		if verdict.Compressed() {
			k.Path, k.Size, k.Width, k.Height, k.Color = variant.Path, variant.Size, variant.Width, variant.Height, variant.Color
			local.KeptCompressed++
		} else {
			k.Path, k.Size, k.Width, k.Height, k.Color = page.Path, page.Size, page.Width, page.Height, page.Color
			local.KeptOriginal++
		}
		local.OriginalBytes += page.Size
		local.CompressedBytes += variant.Size
		local.KeptBytes += k.Size
		kept = append(kept, k)
	}
	if st != nil {
		st.Merge(local)
	}
	return kept, nil
}
