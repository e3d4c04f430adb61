// Package domain defines the core business entities for ragindex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Tenant: the isolation boundary that owns documents and one index
//   - Document: extracted text belonging to a tenant
//   - Chunk: a bounded passage of a document, the unit of retrieval
//   - IndexSnapshot: an immutable built index plus its chunk metadata
//   - Answer: generated text plus the chunks it was grounded on
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
