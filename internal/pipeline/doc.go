// Package pipeline drives archives through the recompression stages and
// aggregates outcomes across a batch.
//
// The Orchestrator owns one archive at a time: marker check, scratch
// preparation, extraction, sanitizing, enumeration, compression, selection,
// assembly, metadata reconciliation, logging, packing and the final commit
// over the original file. Any failure before the commit leaves the original
// untouched; the scratch tree is wiped whatever the outcome.
//
// The Runner discovers archives, serializes batch runs with a lock file in
// the scratch directory, gives each run its own scratch root, records
// outcomes in the history ledger and folds per-archive statistics into the
// batch report.
package pipeline
