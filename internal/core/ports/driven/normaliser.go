package driven

import "context"

// Normaliser extracts plain text from a raw document.
// Each normaliser handles specific MIME types (e.g., PDF, DOCX).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise returns the extracted text of one document.
	Normalise(ctx context.Context, name string, content []byte) (string, error)
}

// NormaliserRegistry selects a normaliser for a MIME type.
type NormaliserRegistry interface {
	// Register adds a normaliser for all its supported MIME types.
	Register(n Normaliser)

	// Get returns the highest-priority normaliser for the MIME type, or nil.
	Get(mimeType string) Normaliser

	// SupportedMIMETypes lists every MIME type with a normaliser.
	SupportedMIMETypes() []string
}
