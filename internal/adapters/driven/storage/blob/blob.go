// Package blob selects the durable blob backend from settings.
package blob

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/blob/badger"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/blob/fs"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/blob/minio"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Directory names under the data directory.
const (
	fsDir     = "blobs"
	badgerDir = "badger"
)

// Open returns the configured backend. The minio bucket is created when
// missing, so Open touches the network for that backend.
func Open(ctx context.Context, settings domain.StorageSettings) (driven.BlobStore, error) {
	switch settings.Backend {
	case domain.StorageFS, "":
		return fs.New(filepath.Join(settings.DataDir, fsDir))
	case domain.StorageBadger:
		return badger.Open(filepath.Join(settings.DataDir, badgerDir))
	case domain.StorageMemory:
		return memory.NewBlobStore(), nil
	case domain.StorageMinio:
		store, err := minio.New(minio.Config{
			Endpoint:  settings.Minio.Endpoint,
			Bucket:    settings.Minio.Bucket,
			AccessKey: settings.Minio.AccessKey,
			SecretKey: settings.Minio.SecretKey,
			UseSSL:    settings.Minio.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}
