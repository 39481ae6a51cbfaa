package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCompression(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.ScratchDir == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateCompression() error {
	switch c.Compression.Format {
	case "webp", "jpeg":
	default:
		return fmt.Errorf("compression.format: unsupported value %q (want webp or jpeg)", c.Compression.Format)
	}
	if err := ensureRangeMap(map[string]int{
		"compression.quality_color":          c.Compression.QualityColor,
		"compression.quality_grayscale":      c.Compression.QualityGrayscale,
		"compression.keep_threshold_percent": c.Compression.KeepThresholdPercent,
	}, 1, 100); err != nil {
		return err
	}
	if c.Compression.MaxHeight < 0 {
		return errors.New("compression.max_height must be zero (disabled) or positive")
	}
	if c.Compression.MaxLongEdge < 0 {
		return errors.New("compression.max_long_edge must be zero (disabled) or positive")
	}
	if c.Compression.Workers < 0 {
		return errors.New("compression.workers must not be negative")
	}
	if c.Compression.ChromaThreshold <= 0 {
		return errors.New("compression.chroma_threshold must be positive")
	}
	if c.Compression.SampleEdge != 0 && c.Compression.SampleEdge < 16 {
		return errors.New("compression.sample_edge must be zero (no downsampling) or at least 16")
	}
	if c.Compression.PackLevel < -2 || c.Compression.PackLevel > 9 {
		return errors.New("compression.pack_level must be between -2 and 9")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "critical":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensureRangeMap(values map[string]int, low, high int) error {
	for key, value := range values {
		if value < low || value > high {
			return fmt.Errorf("%s must be between %d and %d", key, low, high)
		}
	}
	return nil
}
