// Package services defines the error taxonomy and context helpers shared by
// every pipeline stage.
//
// Key responsibilities:
//   - Structured error markers (validation, integrity, sanitization, codec,
//     metadata, configuration) plus the Wrap helper that keeps stage context in
//     the message while staying matchable with errors.Is.
//   - Context helpers that stamp run IDs, archive names, and stage names for
//     logging.
//
// Stages return wrapped errors and never decide failure policy themselves; the
// pipeline orchestrator is the single place that maps a Kind to an outcome.
package services
