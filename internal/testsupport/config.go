package testsupport

import (
	"path/filepath"
	"testing"

	"cbzpress/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Pages are encoded as JPEG so fixtures do not depend on the WebP encoder, and
// the scratch and log directories already exist.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Compression.Format = "jpeg"
	cfgVal.Compression.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithFormat overrides the target page format.
func WithFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Compression.Format = format
	}
}

// WithKeepThreshold overrides the keep threshold percentage.
func WithKeepThreshold(percent int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Compression.KeepThresholdPercent = percent
	}
}

// WithAlwaysKeepCompressed forces compressed pages to be kept.
func WithAlwaysKeepCompressed() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Compression.AlwaysKeepCompressed = true
	}
}

// WithHistory toggles the outcome ledger.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}

// WithHaltOnCritical stops batches on the first critical failure.
func WithHaltOnCritical() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Batch.HaltOnCritical = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ScratchDir)
}
