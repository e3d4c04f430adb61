package domain

import "time"

// DocumentInfo describes a stored document without its text.
type DocumentInfo struct {
	// Name is the file name, unique within a tenant.
	Name string `json:"name"`

	// Size is the raw size in bytes.
	Size int64 `json:"size"`

	// MIMEType is derived from the file extension.
	MIMEType string `json:"mime_type"`

	// ModifiedAt is the last modification time reported by storage.
	ModifiedAt time.Time `json:"modified_at"`
}

// Document is a stored document with its extracted plain text.
type Document struct {
	DocumentInfo

	// Text is the extracted plain text. Empty when extraction failed.
	Text string `json:"-"`
}

// Chunk is a contiguous passage of one document's text.
type Chunk struct {
	// ID is "<document name>#<position>".
	ID string `json:"id" msgpack:"id"`

	// DocumentName references the source document.
	DocumentName string `json:"document" msgpack:"doc"`

	// Position is the ordinal of the chunk within its document.
	Position int `json:"position" msgpack:"pos"`

	// Content is the chunk text, including any overlap with the previous chunk.
	Content string `json:"content" msgpack:"content"`

	// Overlap is the byte length of the leading part of Content that repeats
	// the end of the previous chunk of the same document.
	Overlap int `json:"overlap,omitempty" msgpack:"overlap"`
}

// Core returns the chunk text without its leading overlap.
func (c Chunk) Core() string {
	if c.Overlap <= 0 || c.Overlap > len(c.Content) {
		return c.Content
	}
	return c.Content[c.Overlap:]
}

// ScoredChunk is a chunk with a relevance score.
// Higher is more relevant; the scale depends on the producer.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}
