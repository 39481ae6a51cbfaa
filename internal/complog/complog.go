// Package complog builds the CompressionLog.txt sidecar written into every
// processed archive. Its presence at the archive root is what marks an
// archive as already processed.
package complog

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"

	"cbzpress/internal/stats"
)

// FileName is the sidecar name at the archive root.
const FileName = "CompressionLog.txt"

// Verdict labels used on page lines.
const (
	VerdictCompressed       = "Compressed Image"
	VerdictAlwaysCompressed = "ALWAYS Compressed Image"
	VerdictOriginal         = "Original Image"
)

// Settings are the knobs echoed in the log header.
type Settings struct {
	Format           string
	QualityGrayscale int
	QualityColor     int
	AlwaysKeep       bool
}

// Log accumulates lines for one archive.
type Log struct {
	name  string
	clock func() time.Time
	lines []string
}

// New starts an empty log for the archive called name. A nil clock uses
// time.Now.
func New(name string, clock func() time.Time) *Log {
	if clock == nil {
		clock = time.Now
	}
	return &Log{name: name, clock: clock}
}

// Start writes the header block.
func (l *Log) Start(s Settings) {
	l.lines = append(l.lines,
		fmt.Sprintf("|| Compression Log \"%s\" ||", l.name),
		"Time: "+l.clock().Format("2006-01-02 15:04:05"),
		fmt.Sprintf("Quality Setting for %s Compression: Grayscale: \"%d\", Color: \"%d\"",
			strings.ToUpper(s.Format), s.QualityGrayscale, s.QualityColor),
	)
	if s.AlwaysKeep {
		l.lines = append(l.lines, "Parameter: Always Keep Compressed Image, Regardless if Smaller")
	}
	l.lines = append(l.lines, "")
}

// AddPage records the verdict for the 1-based page n.
func (l *Log) AddPage(n int, description, verdict string) {
	l.lines = append(l.lines, fmt.Sprintf("Page #%04d: %s, Verdict: %s", n, description, verdict))
}

// Finish appends a blank line and the statistics summary.
func (l *Log) Finish(s stats.CompressionStats) {
	l.lines = append(l.lines, "")
	l.lines = append(l.lines, strings.Split(s.Summary(), "\n")...)
}

// Lines returns a copy of the accumulated lines.
func (l *Log) Lines() []string {
	return append([]string(nil), l.lines...)
}

// String renders the log with a trailing newline.
func (l *Log) String() string {
	if len(l.lines) == 0 {
		return ""
	}
	return strings.Join(l.lines, "\n") + "\n"
}

// Export writes the log to path.
func (l *Log) Export(fsys afero.Fs, path string) error {
	if err := afero.WriteFile(fsys, path, []byte(l.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", FileName, err)
	}
	return nil
}
