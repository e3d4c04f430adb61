package normalisers

import (
	"slices"
	"sync"

	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/normalisers/docx"
	"github.com/custodia-labs/ragindex/internal/normalisers/markdown"
	"github.com/custodia-labs/ragindex/internal/normalisers/pdf"
	"github.com/custodia-labs/ragindex/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry maps MIME types to normalisers.
// When several normalisers handle a type, the highest priority wins; equal
// priorities keep registration order.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byMIME: make(map[string][]driven.Normaliser),
	}
}

// Register adds a normaliser for all its supported MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mimeType := range n.SupportedMIMETypes() {
		list := append(r.byMIME[mimeType], n)
		slices.SortStableFunc(list, func(a, b driven.Normaliser) int {
			return b.Priority() - a.Priority()
		})
		r.byMIME[mimeType] = list
	}
}

// Get returns the preferred normaliser for the MIME type, or nil.
func (r *Registry) Get(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byMIME[mimeType]
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

// SupportedMIMETypes returns every MIME type with a normaliser, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for mimeType := range r.byMIME {
		types = append(types, mimeType)
	}
	slices.Sort(types)
	return types
}

// RegisterDefaults registers all built-in normalisers with the registry.
// Call this during application initialisation.
func RegisterDefaults(r driven.NormaliserRegistry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(docx.New())
	r.Register(pdf.New())
}

// NewDefaultRegistry returns a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
