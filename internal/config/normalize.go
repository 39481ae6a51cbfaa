package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCompression()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		if value, ok := os.LookupEnv("CBZPRESS_SCRATCH_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.ScratchDir = strings.TrimSpace(value)
		} else {
			c.Paths.ScratchDir = defaultScratchDir
		}
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCompression() {
	c.Compression.Format = strings.ToLower(strings.TrimSpace(c.Compression.Format))
	switch c.Compression.Format {
	case "":
		c.Compression.Format = defaultFormat
	case "jpg":
		c.Compression.Format = "jpeg"
	}
	if c.Compression.Workers <= 0 {
		c.Compression.Workers = runtime.NumCPU()
	}
	if c.Compression.ChromaThreshold == 0 {
		c.Compression.ChromaThreshold = defaultChromaThreshold
	}
	if c.Compression.PackLevel == 0 {
		c.Compression.PackLevel = defaultPackLevel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
