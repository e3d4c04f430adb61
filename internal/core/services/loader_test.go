package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/normalisers"
)

func collect(t *testing.T, l *Loader, ctx context.Context, tenant domain.TenantID) []domain.Document {
	t.Helper()
	seq, err := l.Documents(ctx, tenant)
	require.NoError(t, err)
	var docs []domain.Document
	for d := range seq {
		docs = append(docs, d)
	}
	return docs
}

func TestLoader_ExtractsSupportedDocuments(t *testing.T) {
	p := newPipeline(t)
	p.seedAcme(t)
	p.put(t, "acme", "photo.png", "\x89PNG")
	l := NewLoader(p.source, normalisers.NewDefaultRegistry())

	docs := collect(t, l, context.Background(), "acme")

	require.Len(t, docs, 3)
	names := []string{docs[0].Name, docs[1].Name, docs[2].Name}
	assert.Equal(t, []string{"cooking.md", "leave.txt", "paris.txt"}, names)
	assert.NotContains(t, docs[0].Text, "#")
	assert.Contains(t, docs[0].Text, "Boil pasta")
	assert.Equal(t, "Paris is the capital of France.", docs[2].Text)
}

func TestLoader_ExtractionFailureYieldsEmptyText(t *testing.T) {
	logs := captureLogs(t, false)
	source := memory.NewDocumentSource()
	_, err := source.Put(context.Background(), "acme", "broken.docx", strings.NewReader("not a zip archive"))
	require.NoError(t, err)
	l := NewLoader(source, normalisers.NewDefaultRegistry())

	docs := collect(t, l, context.Background(), "acme")

	require.Len(t, docs, 1)
	assert.Equal(t, "broken.docx", docs[0].Name)
	assert.Empty(t, docs[0].Text)
	assert.Contains(t, logs.String(), "[WARN] [tenant=acme] extract broken.docx")
}

func TestLoader_ListFailure(t *testing.T) {
	source := memory.NewDocumentSource()
	source.ListErr = errors.New("disk gone")
	l := NewLoader(source, normalisers.NewDefaultRegistry())

	_, err := l.Documents(context.Background(), "acme")
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
}

func TestLoader_StopsOnCancel(t *testing.T) {
	p := newPipeline(t)
	p.seedAcme(t)
	l := NewLoader(p.source, normalisers.NewDefaultRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	seq, err := l.Documents(ctx, "acme")
	require.NoError(t, err)

	var seen int
	for range seq {
		seen++
		cancel()
	}
	assert.Equal(t, 1, seen)
}

func TestLoader_EarlyBreak(t *testing.T) {
	p := newPipeline(t)
	p.seedAcme(t)
	l := NewLoader(p.source, normalisers.NewDefaultRegistry())

	seq, err := l.Documents(context.Background(), "acme")
	require.NoError(t, err)
	for d := range seq {
		assert.Equal(t, "cooking.md", d.Name)
		break
	}
}
