// Command cbzpress recompresses the pages of CBZ comic archives in place,
// keeping a compressed page only when it is meaningfully smaller.
package main
