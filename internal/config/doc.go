// Package config loads, normalizes, and validates cbzpress configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the CBZPRESS_SCRATCH_DIR fallback.
// The Config type centralizes every knob the CLI and the pipeline need so the
// scratch location, compression quality, and keep threshold are resolved in
// one pass and then handed to the pipeline as immutable option values.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
