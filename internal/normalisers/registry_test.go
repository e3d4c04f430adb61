package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/normalisers/docx"
	"github.com/custodia-labs/ragindex/internal/normalisers/markdown"
	"github.com/custodia-labs/ragindex/internal/normalisers/pdf"
	"github.com/custodia-labs/ragindex/internal/normalisers/plaintext"
)

// stubNormaliser is a configurable test normaliser.
type stubNormaliser struct {
	name     string
	types    []string
	priority int
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }
func (s *stubNormaliser) Priority() int                { return s.priority }
func (s *stubNormaliser) Normalise(context.Context, string, []byte) (string, error) {
	return s.name, nil
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("application/octet-stream"))
	assert.Empty(t, r.SupportedMIMETypes())
}

func TestRegistry_PriorityWins(t *testing.T) {
	r := NewRegistry()
	low := &stubNormaliser{name: "low", types: []string{"text/plain"}, priority: 5}
	high := &stubNormaliser{name: "high", types: []string{"text/plain"}, priority: 50}

	r.Register(low)
	r.Register(high)

	assert.Same(t, high, r.Get("text/plain"))
}

func TestRegistry_EqualPriorityKeepsFirst(t *testing.T) {
	r := NewRegistry()
	first := &stubNormaliser{name: "first", types: []string{"text/plain"}, priority: 10}
	second := &stubNormaliser{name: "second", types: []string{"text/plain"}, priority: 10}

	r.Register(first)
	r.Register(second)

	assert.Same(t, first, r.Get("text/plain"))
}

func TestRegistry_SupportedMIMETypesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{types: []string{"text/b", "text/a"}})
	r.Register(&stubNormaliser{types: []string{"text/c", "text/a"}})

	assert.Equal(t, []string{"text/a", "text/b", "text/c"}, r.SupportedMIMETypes())
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		mimeType string
		want     any
	}{
		{domain.MIMEPlainText, &plaintext.Normaliser{}},
		{domain.MIMEMarkdown, &markdown.Normaliser{}},
		{domain.MIMEDOCX, &docx.Normaliser{}},
		{domain.MIMEPDF, &pdf.Normaliser{}},
	}
	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			n := r.Get(tt.mimeType)
			require.NotNil(t, n)
			assert.IsType(t, tt.want, n)
		})
	}

	// Every uploadable extension has an extractor.
	for _, ext := range domain.UploadableExtensions() {
		assert.NotNil(t, r.Get(domain.DetectMIMEType("file"+ext)), ext)
	}
}
