// Package sanitize validates and repairs an extracted archive tree before
// its pages are enumerated.
//
// Cleaning runs in a fixed order and stops at the first condition it cannot
// repair: junk removal, removal of known non-page file types, rejection of
// anything else that is not a page or sidecar, structural flattening of a
// single wrapping directory, and zero-padding of bare numeric page names.
// Unexpected files are never deleted automatically; they surface as
// validation errors so the archive can be fixed by hand.
package sanitize
