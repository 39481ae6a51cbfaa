package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestPretty(buf *bytes.Buffer, level slog.Level) slog.Handler {
	lv := new(slog.LevelVar)
	lv.Set(level)
	return newPrettyHandler(buf, lv, false)
}

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevel(t *testing.T) {
	var console, file bytes.Buffer
	h := newFanoutHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With("run_id", "r1")
	logger.Info("only in file")
	logger.Warn("in both")

	if strings.Contains(console.String(), "only in file") {
		t.Fatalf("console should not receive info records: %q", console.String())
	}
	if !strings.Contains(console.String(), "in both") {
		t.Fatalf("console missing warn record: %q", console.String())
	}
	if strings.Count(file.String(), "\n") != 2 {
		t.Fatalf("expected two JSON records, got %q", file.String())
	}
	if !strings.Contains(file.String(), `"run_id":"r1"`) {
		t.Fatalf("expected WithAttrs to reach every handler: %q", file.String())
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var buf bytes.Buffer
	logger := TeeLogger(nil, slog.NewJSONHandler(&buf, nil))
	logger.Info("tee")
	if !strings.Contains(buf.String(), "tee") {
		t.Fatalf("expected tee output, got %q", buf.String())
	}
}

func TestPrettyHandlerFormatsSubjectAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestPretty(&buf, slog.LevelInfo)).With(
		String(FieldComponent, "pipeline"),
		String(FieldArchive, "/comics/Vol 01.cbz"),
	)
	logger.Info("archive compressed",
		String(FieldStage, "pack"),
		Int64("original_bytes", 2048),
		Float64("reduction_percent", -12.5),
		String(FieldRunID, "abc"),
	)

	out := buf.String()
	if !strings.Contains(out, "INFO [pipeline] Vol 01.cbz (pack) – archive compressed") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "    - Original: 2.0 KiB") {
		t.Fatalf("expected humanized byte field: %q", out)
	}
	if !strings.Contains(out, "    - Reduction: -12.50%") {
		t.Fatalf("expected percent field: %q", out)
	}
	if strings.Contains(out, "abc") {
		t.Fatalf("run id should be hidden at info level: %q", out)
	}
	if !strings.Contains(out, "+ 1 more field hidden") {
		t.Fatalf("expected hidden field count: %q", out)
	}
}

func TestPrettyHandlerDebugShowsAllFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestPretty(&buf, slog.LevelDebug))
	logger.Debug("page classified", String(FieldRunID, "abc"), Float64("chroma_stddev", 0.5))

	out := buf.String()
	if !strings.Contains(out, "DEBUG") || !strings.Contains(out, "    run_id: abc") {
		t.Fatalf("expected raw debug fields, got %q", out)
	}
}

func TestCriticalLevelLabel(t *testing.T) {
	var buf bytes.Buffer
	Critical(slog.New(newTestPretty(&buf, slog.LevelInfo)), "integrity failure", ErrorKind(nil))
	if !strings.Contains(buf.String(), "CRITICAL") {
		t.Fatalf("expected CRITICAL label, got %q", buf.String())
	}

	buf.Reset()
	lv := new(slog.LevelVar)
	Critical(slog.New(newJSONHandler(&buf, lv, false)), "integrity failure")
	if !strings.Contains(buf.String(), `"level":"critical"`) {
		t.Fatalf("expected critical level in JSON, got %q", buf.String())
	}
}

func TestLevelOverrideRaisesMinimum(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newTestPretty(&buf, slog.LevelDebug))
	quiet := WithLevelOverride(base, slog.LevelWarn)
	quiet.Info("hidden")
	quiet.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected override output: %q", buf.String())
	}
	if quiet.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info disabled after override")
	}
}
