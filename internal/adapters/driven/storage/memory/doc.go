// Package memory provides in-process implementations of the storage ports.
// They back tests and the "memory" storage backend, where nothing needs to
// survive the process.
package memory
