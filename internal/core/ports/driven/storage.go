package driven

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// BlobStore is byte-oriented durable storage.
// Put either stores all bytes or fails; Get returns all bytes or
// domain.ErrNotFound.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every key with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Ping validates the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// IndexStore persists tenant index snapshots.
type IndexStore interface {
	// Save persists the snapshot, replacing the tenant's previous one only
	// once the new one is fully written.
	Save(ctx context.Context, snap *domain.IndexSnapshot) error

	// Load returns the tenant's persisted snapshot, or (nil, nil) when the
	// tenant has never been indexed.
	Load(ctx context.Context, tenant domain.TenantID) (*domain.IndexSnapshot, error)

	// Exists reports whether a snapshot is persisted for the tenant.
	Exists(ctx context.Context, tenant domain.TenantID) (bool, error)

	// Delete removes the tenant's snapshot.
	Delete(ctx context.Context, tenant domain.TenantID) error
}

// IndexBuilder constructs vector indexes.
type IndexBuilder interface {
	Build(vectors [][]float32, settings domain.IndexSettings, normalize bool) (domain.VectorIndex, error)
}

// CatalogueStore keeps the build history of every tenant.
type CatalogueStore interface {
	// RecordBuild inserts or replaces a build record.
	RecordBuild(ctx context.Context, rec domain.BuildRecord) error

	// LastBuild returns the most recent build, or domain.ErrNotFound.
	LastBuild(ctx context.Context, tenant domain.TenantID) (*domain.BuildRecord, error)

	// ListBuilds returns up to limit builds, newest first.
	ListBuilds(ctx context.Context, tenant domain.TenantID, limit int) ([]domain.BuildRecord, error)

	Close() error
}

// IndexMirror publishes a tenant's chunks and vectors to an external
// search engine. It is a replica, never the source of truth.
type IndexMirror interface {
	Publish(ctx context.Context, tenant domain.TenantID, chunks []domain.Chunk, vectors [][]float32) error
	Drop(ctx context.Context, tenant domain.TenantID) error
	Close() error
}
