// Package normalisers provides the text extractors that turn library files into
// per-page plain text, and the Registry that dispatches on file extension.
//
// Extractors are registered with the Registry at startup.
package normalisers
