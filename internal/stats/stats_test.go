package stats_test

import (
	"strings"
	"testing"

	"cbzpress/internal/stats"
)

func sample(seed int64) stats.CompressionStats {
	return stats.CompressionStats{
		OriginalBytes:     1000 * seed,
		CompressedBytes:   400 * seed,
		KeptBytes:         500 * seed,
		KeptCompressed:    int(seed),
		KeptOriginal:      int(seed) + 1,
		MetadataPresent:   1,
		TotalArchives:     int(seed),
		Succeeded:         1,
		AlreadyCompressed: 2,
		Failed:            3,
	}
}

func TestMergeIsAssociativeAndCommutative(t *testing.T) {
	a, b, c := sample(1), sample(2), sample(5)

	left := stats.Add(stats.Add(a, b), c)
	right := stats.Add(a, stats.Add(b, c))
	if left != right {
		t.Fatalf("merge not associative: %+v vs %+v", left, right)
	}
	if stats.Add(a, b) != stats.Add(b, a) {
		t.Fatal("merge not commutative")
	}
	var zero stats.CompressionStats
	if stats.Add(a, zero) != a {
		t.Fatal("zero value should be the identity")
	}
	if a != sample(1) {
		t.Fatal("Add must not mutate its inputs")
	}
}

func TestReductionPercent(t *testing.T) {
	s := stats.CompressionStats{OriginalBytes: 1000, KeptBytes: 250}
	pct, ok := s.ReductionPercent()
	if !ok || pct != 75 {
		t.Fatalf("ReductionPercent = %v, %v", pct, ok)
	}
	if _, ok := (stats.CompressionStats{}).ReductionPercent(); ok {
		t.Fatal("expected ok=false with zero original bytes")
	}
}

func TestSummaryFormat(t *testing.T) {
	s := stats.CompressionStats{
		OriginalBytes:  4 * 1024 * 1024,
		KeptBytes:      1024 * 1024,
		KeptCompressed: 2,
		KeptOriginal:   1,
	}
	want := strings.Join([]string{
		"||Compression Statistics||",
		"  |Images|",
		"    Original # Kept:            1",
		"    Compressed # Kept:          2",
		"  |Archive|",
		"    Original Size:              4.00 MB",
		"    Reduction Size:             3.00 MB",
		"    New Size:                   1.00 MB",
		"    Reduction (%):              -75.00%",
		"    New (%):                    25.00%",
	}, "\n")
	if got := s.Summary(); got != want {
		t.Fatalf("unexpected summary:\n%s\nwant:\n%s", got, want)
	}

	s.TotalArchives = 4
	s.Succeeded = 2
	s.AlreadyCompressed = 1
	s.Failed = 1
	got := s.Summary()
	for _, line := range []string{
		"  |CBZ Files|",
		"    Total File Count in Dir:    4",
		"    Already Compressed:         1",
		"    Error During Compression:   1",
		"    Successful Compression:     2",
	} {
		if !strings.Contains(got, line+"\n") {
			t.Fatalf("summary missing %q:\n%s", line, got)
		}
	}
}

func TestSummaryWithoutOriginalBytes(t *testing.T) {
	got := (stats.CompressionStats{}).Summary()
	if !strings.Contains(got, "Reduction (%):              N/A") || !strings.HasSuffix(got, "New (%):                    N/A") {
		t.Fatalf("expected N/A percentages:\n%s", got)
	}
}
