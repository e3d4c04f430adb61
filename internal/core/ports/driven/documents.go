package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// DocumentSource is per-tenant document storage.
// Names are plain file names; implementations reject path separators.
type DocumentSource interface {
	// List returns every stored document of the tenant, sorted by name.
	// A tenant that never uploaded anything has no documents, not an error.
	List(ctx context.Context, tenant domain.TenantID) ([]domain.DocumentInfo, error)

	// Open returns the raw content of one document.
	// Returns domain.ErrNotFound if it does not exist.
	Open(ctx context.Context, tenant domain.TenantID, name string) (io.ReadCloser, error)

	// Put stores a document, replacing any document with the same name.
	Put(ctx context.Context, tenant domain.TenantID, name string, r io.Reader) (domain.DocumentInfo, error)

	// Remove deletes a document. Returns domain.ErrNotFound if it does not exist.
	Remove(ctx context.Context, tenant domain.TenantID, name string) error
}

// ChangeType identifies what happened to a watched document.
type ChangeType string

// Document change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// DocumentChange is one observed modification of a tenant's documents.
type DocumentChange struct {
	Tenant domain.TenantID
	Name   string
	Type   ChangeType
}

// DocumentWatcher reports document changes as they happen.
type DocumentWatcher interface {
	// Watch streams changes until ctx is cancelled, then closes the channel.
	Watch(ctx context.Context) (<-chan DocumentChange, error)
}
