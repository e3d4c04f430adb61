package services

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// maxDocumentBytes caps how much of one document is read for extraction.
const maxDocumentBytes = 256 << 20

// Loader reads a tenant's documents and extracts their text.
type Loader struct {
	source   driven.DocumentSource
	registry driven.NormaliserRegistry
}

// NewLoader creates a document loader.
func NewLoader(source driven.DocumentSource, registry driven.NormaliserRegistry) *Loader {
	return &Loader{
		source:   source,
		registry: registry,
	}
}

// Documents lists the tenant's documents and returns a lazy sequence over
// them. Each document is opened and extracted only when the sequence
// reaches it, and ranging again re-reads the same listing.
//
// Documents with no extractor are skipped. A document whose extraction
// fails is yielded with empty text; the failure is logged, never returned.
// The sequence stops early when ctx is cancelled.
func (l *Loader) Documents(ctx context.Context, tenant domain.TenantID) (iter.Seq[domain.Document], error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	infos, err := l.source.List(ctx, tenant)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: list documents: %w", domain.ErrStorageFailure, err)
	}

	log := logger.Tenant(string(tenant))

	return func(yield func(domain.Document) bool) {
		for _, info := range infos {
			if ctx.Err() != nil {
				return
			}

			normaliser := l.registry.Get(info.MIMEType)
			if normaliser == nil {
				log.Debug("skipping %s: no extractor for %s", info.Name, info.MIMEType)
				continue
			}

			doc := domain.Document{DocumentInfo: info}
			text, err := l.extract(ctx, tenant, info, normaliser)
			if err != nil {
				log.Warn("extract %s: %v", info.Name, err)
			} else {
				doc.Text = text
			}

			if !yield(doc) {
				return
			}
		}
	}, nil
}

func (l *Loader) extract(ctx context.Context, tenant domain.TenantID, info domain.DocumentInfo, n driven.Normaliser) (string, error) {
	rc, err := l.source.Open(ctx, tenant, info.Name)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxDocumentBytes+1))
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	if len(content) > maxDocumentBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", domain.ErrInvalidInput, maxDocumentBytes)
	}

	return n.Normalise(ctx, info.Name, content)
}
