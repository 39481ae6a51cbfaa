// Package preflight provides readiness checks for the filesystem paths and the
// image encoder that cbzpress depends on.
//
// These checks run in two contexts:
//   - The compress command calls RunAll before touching any archive. If a
//     check fails, the batch does not start.
//   - The CLI "cbzpress check" command prints every Result as a table.
package preflight
