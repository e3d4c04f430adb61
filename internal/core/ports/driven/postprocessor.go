package driven

import "github.com/custodia-labs/ragindex/internal/core/domain"

// Chunker splits extracted document text into positioned chunks.
// Implementations are deterministic: the same text always yields the
// same chunks.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// ChunkDocument returns the document's chunks with positions 0..n-1.
	// Empty or whitespace-only text yields no chunks.
	ChunkDocument(doc domain.Document) []domain.Chunk
}
