// Package archive reads and writes comic book zip archives.
//
// Extraction is traversal-safe: every entry name is normalized and checked
// for containment before anything is written, and each file is streamed into
// a temp file beside its target so the zip CRC is verified before the rename.
// Packing writes to a temp file next to the destination and only replaces the
// original when the caller commits the returned Staged archive.
package archive
