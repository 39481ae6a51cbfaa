// Package stats accumulates page and archive counters across a batch.
package stats

import (
	"fmt"
	"strings"
)

// CompressionStats holds byte totals and counters. The zero value is empty
// and Merge is a field-wise sum, so values combine in any grouping or order.
type CompressionStats struct {
	OriginalBytes   int64
	CompressedBytes int64
	KeptBytes       int64

	KeptCompressed int
	KeptOriginal   int

	MetadataPresent int
	MetadataMissing int

	TotalArchives     int
	Succeeded         int
	AlreadyCompressed int
	Failed            int
}

// Merge adds other into s.
func (s *CompressionStats) Merge(other CompressionStats) {
	s.OriginalBytes += other.OriginalBytes
	s.CompressedBytes += other.CompressedBytes
	s.KeptBytes += other.KeptBytes
	s.KeptCompressed += other.KeptCompressed
	s.KeptOriginal += other.KeptOriginal
	s.MetadataPresent += other.MetadataPresent
	s.MetadataMissing += other.MetadataMissing
	s.TotalArchives += other.TotalArchives
	s.Succeeded += other.Succeeded
	s.AlreadyCompressed += other.AlreadyCompressed
	s.Failed += other.Failed
}

// Add returns the sum of a and b without modifying either.
func Add(a, b CompressionStats) CompressionStats {
	a.Merge(b)
	return a
}

// ReductionPercent is the share of original bytes saved. ok is false when no
// original bytes were counted.
func (s CompressionStats) ReductionPercent() (pct float64, ok bool) {
	if s.OriginalBytes == 0 {
		return 0, false
	}
	return 100 - float64(s.KeptBytes)/float64(s.OriginalBytes)*100, true
}

// NewPercent is the kept size as a share of the original.
func (s CompressionStats) NewPercent() (pct float64, ok bool) {
	if s.OriginalBytes == 0 {
		return 0, false
	}
	return float64(s.KeptBytes) / float64(s.OriginalBytes) * 100, true
}

// KeptPages is the number of pages written to the result archive.
func (s CompressionStats) KeptPages() int {
	return s.KeptCompressed + s.KeptOriginal
}

func toMB(b int64) float64 {
	return float64(b) / (1024 * 1024)
}

// Summary renders the statistics block appended to compression logs and
// printed after a batch. The archive counter section only appears when
// archives were counted.
func (s CompressionStats) Summary() string {
	var b strings.Builder
	b.WriteString("||Compression Statistics||\n")

	if s.TotalArchives > 0 {
		b.WriteString("  |CBZ Files|\n")
		fmt.Fprintf(&b, "    Total File Count in Dir:    %d\n", s.TotalArchives)
		fmt.Fprintf(&b, "    Already Compressed:         %d\n", s.AlreadyCompressed)
		fmt.Fprintf(&b, "    Error During Compression:   %d\n", s.Failed)
		fmt.Fprintf(&b, "    Successful Compression:     %d\n", s.Succeeded)
	}

	reduction, newPct := "N/A", "N/A"
	if pct, ok := s.ReductionPercent(); ok {
		reduction = fmt.Sprintf("-%.2f%%", pct)
	}
	if pct, ok := s.NewPercent(); ok {
		newPct = fmt.Sprintf("%.2f%%", pct)
	}

	b.WriteString("  |Images|\n")
	fmt.Fprintf(&b, "    Original # Kept:            %d\n", s.KeptOriginal)
	fmt.Fprintf(&b, "    Compressed # Kept:          %d\n", s.KeptCompressed)
	b.WriteString("  |Archive|\n")
	fmt.Fprintf(&b, "    Original Size:              %.2f MB\n", toMB(s.OriginalBytes))
	fmt.Fprintf(&b, "    Reduction Size:             %.2f MB\n", toMB(s.OriginalBytes-s.KeptBytes))
	fmt.Fprintf(&b, "    New Size:                   %.2f MB\n", toMB(s.KeptBytes))
	fmt.Fprintf(&b, "    Reduction (%%):              %s\n", reduction)
	fmt.Fprintf(&b, "    New (%%):                    %s", newPct)
	return b.String()
}
