// Package history persists per-archive outcomes in a small SQLite ledger so
// past batch runs can be reviewed with `cbzpress history`.
//
// The ledger is observational only: the pipeline never consults it to decide
// whether an archive needs work. That decision belongs to the compression
// log marker inside the archive itself.
package history
