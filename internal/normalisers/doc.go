// Package normalisers provides implementations of the Normaliser interface
// for the document formats tenants may upload. Each normaliser knows how to
// extract plain text from a specific MIME type.
//
// Normalisers are registered with a Registry at startup; RegisterDefaults
// installs the built-in set.
package normalisers
