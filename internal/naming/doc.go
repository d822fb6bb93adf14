// Package naming maps uploaded file names to on-disk storage names and
// back to human-readable display names, including the repair of names
// mangled by single-byte transport decoding.
package naming
