// Package logging assembles structured slog loggers and formatting helpers used
// across cbzpress.
//
// It owns the console and JSON handlers, the fanout that copies console output
// into the JSON log file, and the CRITICAL level used for corrupt archives and
// sanitization defects. Context helpers tag log lines with the run identifier,
// archive, and stage so per-archive output can be grepped out of a batch run.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
