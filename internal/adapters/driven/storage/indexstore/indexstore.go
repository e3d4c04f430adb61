// Package indexstore persists tenant index snapshots on a driven.BlobStore.
//
// Each build is written under its own directory and published by a small
// pointer blob:
//
//	indexes/company_<tenant>/<build>/index.msgpack   the encoded vector index
//	indexes/company_<tenant>/<build>/chunks.msgpack  the chunk list and build header
//	indexes/company_<tenant>/current                 the committed build ID
//
// Both build blobs are written before the pointer, so a save that dies
// part way leaves the previously committed build untouched. Builds the
// pointer no longer names are removed after each commit.
package indexstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// formatVersion is bumped whenever either blob layout changes.
const formatVersion = 1

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

type indexBlob struct {
	Version int    `msgpack:"v"`
	BuildID string `msgpack:"build"`
	Index   []byte `msgpack:"index"`
}

type pointerBlob struct {
	Version int    `msgpack:"v"`
	BuildID string `msgpack:"build"`
}

type chunksBlob struct {
	Version    int              `msgpack:"v"`
	BuildID    string           `msgpack:"build"`
	Tenant     string           `msgpack:"tenant"`
	Model      string           `msgpack:"model"`
	BuiltAt    time.Time        `msgpack:"built_at"`
	Kind       domain.IndexKind `msgpack:"kind"`
	Dimensions int              `msgpack:"dims"`
	Normalized bool             `msgpack:"norm"`
	Chunks     []domain.Chunk   `msgpack:"chunks"`
}

// Store implements driven.IndexStore over a blob store.
type Store struct {
	blobs driven.BlobStore
}

// New creates an index store writing to blobs.
func New(blobs driven.BlobStore) *Store {
	return &Store{blobs: blobs}
}

// loadAttempts bounds how often Load follows a pointer that moved while it
// was reading.
const loadAttempts = 3

// Prefix returns the key prefix holding all of the tenant's builds.
func Prefix(tenant domain.TenantID) string {
	return "indexes/" + tenant.StorageName() + "/"
}

// CurrentKey returns the key of the tenant's commit pointer.
func CurrentKey(tenant domain.TenantID) string {
	return Prefix(tenant) + "current"
}

// BuildPrefix returns the key prefix of one build.
func BuildPrefix(tenant domain.TenantID, buildID string) string {
	return Prefix(tenant) + buildID + "/"
}

// IndexKey returns the key of a build's vector index blob.
func IndexKey(tenant domain.TenantID, buildID string) string {
	return BuildPrefix(tenant, buildID) + "index.msgpack"
}

// ChunksKey returns the key of a build's chunk blob.
func ChunksKey(tenant domain.TenantID, buildID string) string {
	return BuildPrefix(tenant, buildID) + "chunks.msgpack"
}

// Save writes the snapshot's blobs, then moves the pointer to it. Until the
// pointer is written Load keeps returning the previous build.
func (s *Store) Save(ctx context.Context, snap *domain.IndexSnapshot) error {
	if err := validate(snap); err != nil {
		return err
	}

	encoded, err := vectorindex.Encode(snap.Index)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
	}
	indexData, err := msgpack.Marshal(&indexBlob{
		Version: formatVersion,
		BuildID: snap.BuildID,
		Index:   encoded,
	})
	if err != nil {
		return fmt.Errorf("%w: encode index blob: %w", domain.ErrStorageFailure, err)
	}
	chunksData, err := msgpack.Marshal(&chunksBlob{
		Version:    formatVersion,
		BuildID:    snap.BuildID,
		Tenant:     string(snap.Tenant),
		Model:      snap.Model,
		BuiltAt:    snap.BuiltAt.UTC(),
		Kind:       snap.Index.Kind(),
		Dimensions: snap.Index.Dimensions(),
		Normalized: snap.Index.Normalized(),
		Chunks:     snap.Chunks,
	})
	if err != nil {
		return fmt.Errorf("%w: encode chunk blob: %w", domain.ErrStorageFailure, err)
	}
	pointerData, err := msgpack.Marshal(&pointerBlob{Version: formatVersion, BuildID: snap.BuildID})
	if err != nil {
		return fmt.Errorf("%w: encode pointer: %w", domain.ErrStorageFailure, err)
	}

	if err := s.blobs.Put(ctx, IndexKey(snap.Tenant, snap.BuildID), indexData); err != nil {
		s.discard(snap.Tenant, snap.BuildID)
		return wrapStorage(err, "write index")
	}
	if err := s.blobs.Put(ctx, ChunksKey(snap.Tenant, snap.BuildID), chunksData); err != nil {
		s.discard(snap.Tenant, snap.BuildID)
		return wrapStorage(err, "write chunks")
	}
	if err := s.blobs.Put(ctx, CurrentKey(snap.Tenant), pointerData); err != nil {
		s.discard(snap.Tenant, snap.BuildID)
		return wrapStorage(err, "write pointer")
	}

	s.collect(ctx, snap.Tenant, snap.BuildID)
	return nil
}

// discard removes the blobs of a build that was never committed. It runs on
// a fresh context because the caller's may be what failed.
func (s *Store) discard(tenant domain.TenantID, buildID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, key := range []string{ChunksKey(tenant, buildID), IndexKey(tenant, buildID)} {
		if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Tenant(tenant.String()).Warn("discard uncommitted build %s: %v", buildID, err)
			return
		}
	}
}

// collect deletes every blob under the tenant's prefix that belongs to a
// build other than keep. Failures are logged; the commit already happened.
func (s *Store) collect(ctx context.Context, tenant domain.TenantID, keep string) {
	log := logger.Tenant(tenant.String())

	keys, err := s.blobs.List(ctx, Prefix(tenant))
	if err != nil {
		log.Warn("list old builds: %v", err)
		return
	}
	current, live := CurrentKey(tenant), BuildPrefix(tenant, keep)
	for _, key := range keys {
		if key == current || strings.HasPrefix(key, live) {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Warn("delete old build blob %s: %v", key, err)
			return
		}
		log.Debug("deleted old build blob %s", key)
	}
}

// Load reads the tenant's committed snapshot. It returns (nil, nil) when
// nothing was ever committed for the tenant.
func (s *Store) Load(ctx context.Context, tenant domain.TenantID) (*domain.IndexSnapshot, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for range loadAttempts {
		buildID, err := s.current(ctx, tenant)
		if err != nil || buildID == "" {
			return nil, err
		}

		snap, err := s.loadBuild(ctx, tenant, buildID)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		// The build vanished under us. That is only expected when a newer
		// save moved the pointer and collected it.
		lastErr = err
		moved, perr := s.current(ctx, tenant)
		if perr != nil {
			return nil, perr
		}
		if moved == buildID {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, lastErr)
}

// current returns the committed build ID, or "" when there is none.
func (s *Store) current(ctx context.Context, tenant domain.TenantID) (string, error) {
	data, err := s.blobs.Get(ctx, CurrentKey(tenant))
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", wrapStorage(err, "read pointer")
	}

	var p pointerBlob
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("%w: decode pointer: %w", domain.ErrStorageFailure, err)
	}
	if p.Version != formatVersion {
		return "", fmt.Errorf("%w: unsupported pointer version %d", domain.ErrStorageFailure, p.Version)
	}
	if err := validBuildID(p.BuildID); err != nil {
		return "", fmt.Errorf("%w: pointer for %s: %w", domain.ErrStorageFailure, tenant, err)
	}
	return p.BuildID, nil
}

// loadBuild reads one build. A missing blob is returned wrapping
// domain.ErrNotFound so Load can tell it apart from corruption.
func (s *Store) loadBuild(ctx context.Context, tenant domain.TenantID, buildID string) (*domain.IndexSnapshot, error) {
	chunksData, err := s.blobs.Get(ctx, ChunksKey(tenant, buildID))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("committed build %s for %s has no chunk blob: %w", buildID, tenant, err)
	}
	if err != nil {
		return nil, wrapStorage(err, "read chunks")
	}
	indexData, err := s.blobs.Get(ctx, IndexKey(tenant, buildID))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("committed build %s for %s has no index blob: %w", buildID, tenant, err)
	}
	if err != nil {
		return nil, wrapStorage(err, "read index")
	}

	var meta chunksBlob
	if err := msgpack.Unmarshal(chunksData, &meta); err != nil {
		return nil, fmt.Errorf("%w: decode chunks: %w", domain.ErrStorageFailure, err)
	}
	var ib indexBlob
	if err := msgpack.Unmarshal(indexData, &ib); err != nil {
		return nil, fmt.Errorf("%w: decode index blob: %w", domain.ErrStorageFailure, err)
	}

	switch {
	case meta.Version != formatVersion || ib.Version != formatVersion:
		return nil, fmt.Errorf("%w: unsupported snapshot version %d/%d", domain.ErrStorageFailure, meta.Version, ib.Version)
	case meta.BuildID != buildID || ib.BuildID != buildID:
		return nil, fmt.Errorf("%w: build mismatch for %s: pointer %s, chunks %s, index %s",
			domain.ErrStorageFailure, tenant, buildID, meta.BuildID, ib.BuildID)
	case meta.Tenant != string(tenant):
		return nil, fmt.Errorf("%w: snapshot belongs to %q", domain.ErrStorageFailure, meta.Tenant)
	}

	idx, err := vectorindex.Decode(ib.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
	}
	if idx.Len() != len(meta.Chunks) || idx.Dimensions() != meta.Dimensions {
		return nil, fmt.Errorf("%w: index holds %d vectors of %d dims, header says %d of %d",
			domain.ErrStorageFailure, idx.Len(), idx.Dimensions(), len(meta.Chunks), meta.Dimensions)
	}

	return &domain.IndexSnapshot{
		Tenant:  tenant,
		BuildID: meta.BuildID,
		Model:   meta.Model,
		BuiltAt: meta.BuiltAt,
		Chunks:  meta.Chunks,
		Index:   idx,
	}, nil
}

// Exists reports whether a committed snapshot is present.
func (s *Store) Exists(ctx context.Context, tenant domain.TenantID) (bool, error) {
	if err := tenant.Validate(); err != nil {
		return false, err
	}
	ok, err := s.blobs.Exists(ctx, CurrentKey(tenant))
	if err != nil {
		return false, wrapStorage(err, "stat pointer")
	}
	return ok, nil
}

// Delete removes the pointer first, then every build of the tenant.
func (s *Store) Delete(ctx context.Context, tenant domain.TenantID) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, CurrentKey(tenant)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return wrapStorage(err, "delete pointer")
	}
	keys, err := s.blobs.List(ctx, Prefix(tenant))
	if err != nil {
		return wrapStorage(err, "list builds")
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return wrapStorage(err, "delete build blob")
		}
	}
	return nil
}

func validate(snap *domain.IndexSnapshot) error {
	switch {
	case snap == nil:
		return fmt.Errorf("%w: nil snapshot", domain.ErrInvalidInput)
	case snap.Index == nil:
		return fmt.Errorf("%w: snapshot without index", domain.ErrInvalidInput)
	case validBuildID(snap.BuildID) != nil:
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, validBuildID(snap.BuildID))
	case len(snap.Chunks) != snap.Index.Len():
		return fmt.Errorf("%w: %d chunks for %d vectors", domain.ErrInvalidInput, len(snap.Chunks), snap.Index.Len())
	}
	return snap.Tenant.Validate()
}

// validBuildID rejects IDs that cannot be used as a single key segment.
func validBuildID(id string) error {
	switch {
	case id == "":
		return errors.New("empty build id")
	case id == "." || id == ".." || id == "current" || strings.ContainsAny(id, "/\\"):
		return fmt.Errorf("build id %q is not a valid key segment", id)
	}
	return nil
}

// wrapStorage marks err as a storage failure unless it already is one or
// is a context error the caller should see as-is.
func wrapStorage(err error, op string) error {
	if errors.Is(err, domain.ErrStorageFailure) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageFailure, op, err)
}
