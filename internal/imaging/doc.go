// Package imaging owns page enumeration and recompression for a sanitized
// archive tree.
//
// Pages are discovered in lexicographic filename order, classified as colour
// or grayscale by chroma variance, optionally downscaled, and re-encoded to
// the configured target format. Compression of one archive runs on a bounded
// worker pool; the first failure cancels the remaining pages and surfaces as
// a codec error so the caller never packs a partial result.
package imaging
