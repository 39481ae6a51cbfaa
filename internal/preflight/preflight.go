package preflight

import (
	"context"

	"cbzpress/internal/config"
	"cbzpress/internal/platform"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, strategy platform.Strategy) []Result {
	if cfg == nil {
		return nil
	}
	if strategy == nil {
		strategy = platform.Detect()
	}

	results := []Result{
		CheckDirectoryAccess(strategy, "Scratch directory", cfg.Paths.ScratchDir),
		CheckDirectoryAccess(strategy, "Log directory", cfg.Paths.LogDir),
	}
	if ctx.Err() != nil {
		return results
	}
	results = append(results, CheckEncoder(cfg.Compression.Format, cfg.Compression.QualityColor))
	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
