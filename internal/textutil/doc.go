// Package textutil provides small string helpers shared by the sanitizer, the
// pipeline, and the CLI.
//
// The primary use cases are:
//   - Splitting page file names into stem and extension
//   - Computing zero-padding widths from page counts
//   - NFC-normalizing archive entry names so composed and decomposed forms
//     compare equal
package textutil
