package indexstore

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsblob "github.com/custodia-labs/ragindex/internal/adapters/driven/storage/blob/fs"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

func snapshot(t *testing.T, tenant domain.TenantID, buildID string, kind domain.IndexKind) *domain.IndexSnapshot {
	t.Helper()

	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	idx, err := vectorindex.NewBuilder(vectorindex.WithSeed(7)).Build(vectors, domain.IndexSettings{
		Kind: kind, M: 4, EfConstruction: 16, EfSearch: 16,
	}, true)
	require.NoError(t, err)

	return &domain.IndexSnapshot{
		Tenant:  tenant,
		BuildID: buildID,
		Model:   "test-model",
		BuiltAt: time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC),
		Chunks: []domain.Chunk{
			{ID: "a.txt#0", DocumentName: "a.txt", Position: 0, Content: "alpha"},
			{ID: "a.txt#1", DocumentName: "a.txt", Position: 1, Content: "ha beta", Overlap: 2},
			{ID: "b.txt#0", DocumentName: "b.txt", Position: 0, Content: "gamma"},
		},
		Index: idx,
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "indexes/company_acme/current", CurrentKey("acme"))
	assert.Equal(t, "indexes/company_acme/b1/index.msgpack", IndexKey("acme", "b1"))
	assert.Equal(t, "indexes/company_acme/b1/chunks.msgpack", ChunksKey("acme", "b1"))
}

// hookedBlobs runs beforeGet ahead of every Get.
type hookedBlobs struct {
	driven.BlobStore
	beforeGet func(key string)
}

func (h *hookedBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	if h.beforeGet != nil {
		h.beforeGet(key)
	}
	return h.BlobStore.Get(ctx, key)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	for _, kind := range []domain.IndexKind{domain.IndexKindFlat, domain.IndexKindHNSW} {
		t.Run(string(kind), func(t *testing.T) {
			store := New(memory.NewBlobStore())
			ctx := context.Background()
			snap := snapshot(t, "acme", "build-1", kind)

			require.NoError(t, store.Save(ctx, snap))

			got, err := store.Load(ctx, "acme")
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.Equal(t, snap.BuildID, got.BuildID)
			assert.Equal(t, snap.Model, got.Model)
			assert.True(t, snap.BuiltAt.Equal(got.BuiltAt))
			assert.Equal(t, snap.Chunks, got.Chunks)
			assert.Equal(t, kind, got.Index.Kind())
			assert.Equal(t, 3, got.Index.Len())

			want, err := snap.Index.Search([]float32{0, 1, 0}, 3)
			require.NoError(t, err)
			have, err := got.Index.Search([]float32{0, 1, 0}, 3)
			require.NoError(t, err)
			assert.Equal(t, want, have)
		})
	}
}

func TestStore_Load_NeverIndexed(t *testing.T) {
	store := New(memory.NewBlobStore())

	snap, err := store.Load(context.Background(), "acme2")
	require.NoError(t, err)
	assert.Nil(t, snap)

	ok, err := store.Exists(context.Background(), "acme2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Load_InvalidTenant(t *testing.T) {
	store := New(memory.NewBlobStore())

	_, err := store.Load(context.Background(), "../etc")
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
}

func TestStore_Load_HalfWritten(t *testing.T) {
	blobs := memory.NewBlobStore()
	store := New(blobs)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b1", domain.IndexKindFlat)))
	require.NoError(t, blobs.Delete(ctx, ChunksKey("acme", "b1")))

	_, err := store.Load(ctx, "acme")
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
}

func TestStore_Load_MismatchedBuilds(t *testing.T) {
	blobs := memory.NewBlobStore()
	store := New(blobs)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b1", domain.IndexKindFlat)))
	oldChunks, err := blobs.Get(ctx, ChunksKey("acme", "b1"))
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b2", domain.IndexKindFlat)))
	require.NoError(t, blobs.Put(ctx, ChunksKey("acme", "b2"), oldChunks))

	_, err = store.Load(ctx, "acme")
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.Contains(t, err.Error(), "build mismatch")
}

func TestStore_Load_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "index", key: IndexKey("acme", "b1")},
		{name: "chunks", key: ChunksKey("acme", "b1")},
		{name: "pointer", key: CurrentKey("acme")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := memory.NewBlobStore()
			store := New(blobs)
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b1", domain.IndexKindHNSW)))
			require.NoError(t, blobs.Put(ctx, tt.key, []byte("garbage")))

			_, err := store.Load(ctx, "acme")
			assert.ErrorIs(t, err, domain.ErrStorageFailure)
		})
	}
}

func TestStore_Save_FailedCommitKeepsPrevious(t *testing.T) {
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	for _, failing := range []string{"index.msgpack", "chunks.msgpack", "current"} {
		t.Run(failing, func(t *testing.T) {
			blobs := memory.NewBlobStore()
			store := New(blobs)
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b1", domain.IndexKindFlat)))

			blobs.FailPut = func(key string) error {
				if strings.HasSuffix(key, failing) {
					return errors.New("disk full")
				}
				return nil
			}
			err := store.Save(ctx, snapshot(t, "acme", "b2", domain.IndexKindFlat))
			require.ErrorIs(t, err, domain.ErrStorageFailure)
			blobs.FailPut = nil

			got, err := New(blobs).Load(ctx, "acme")
			require.NoError(t, err)
			assert.Equal(t, "b1", got.BuildID)

			leftovers, err := blobs.List(ctx, BuildPrefix("acme", "b2"))
			require.NoError(t, err)
			assert.Empty(t, leftovers)
		})
	}
}

func TestStore_Save_FailedFirstCommitLeavesNothing(t *testing.T) {
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	blobs := memory.NewBlobStore()
	blobs.FailPut = func(key string) error {
		if strings.HasSuffix(key, "current") {
			return errors.New("disk full")
		}
		return nil
	}
	store := New(blobs)
	ctx := context.Background()

	err := store.Save(ctx, snapshot(t, "acme", "b1", domain.IndexKindFlat))
	require.ErrorIs(t, err, domain.ErrStorageFailure)

	snap, err := store.Load(ctx, "acme")
	require.NoError(t, err)
	assert.Nil(t, snap)

	keys, err := blobs.List(ctx, Prefix("acme"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_LoadDuringSaveSeesPreviousBuild(t *testing.T) {
	blobs := memory.NewBlobStore()
	store := New(blobs)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b1", domain.IndexKindFlat)))

	// Hold the second save between its two build blobs.
	reached := make(chan struct{})
	release := make(chan struct{})
	blobs.FailPut = func(key string) error {
		if key == ChunksKey("acme", "b2") {
			close(reached)
			<-release
		}
		return nil
	}

	saved := make(chan error, 1)
	go func() {
		saved <- store.Save(ctx, snapshot(t, "acme", "b2", domain.IndexKindFlat))
	}()
	<-reached

	got, err := New(blobs).Load(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "b1", got.BuildID)

	close(release)
	require.NoError(t, <-saved)

	got, err = New(blobs).Load(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "b2", got.BuildID)
}

func TestStore_LoadFollowsPointerMovedMidRead(t *testing.T) {
	raw := memory.NewBlobStore()
	writer := New(raw)
	ctx := context.Background()

	require.NoError(t, writer.Save(ctx, snapshot(t, "acme", "b1", domain.IndexKindFlat)))

	// The first read of b1's chunks races a save of b2, which collects b1.
	var once sync.Once
	hooked := &hookedBlobs{BlobStore: raw}
	hooked.beforeGet = func(key string) {
		if key == ChunksKey("acme", "b1") {
			once.Do(func() {
				require.NoError(t, writer.Save(ctx, snapshot(t, "acme", "b2", domain.IndexKindFlat)))
			})
		}
	}

	got, err := New(hooked).Load(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "b2", got.BuildID)
}

func TestStore_Save_CollectsOldBuilds(t *testing.T) {
	blobs := memory.NewBlobStore()
	store := New(blobs)
	ctx := context.Background()

	require.NoError(t, blobs.Put(ctx, Prefix("acme")+"index.msgpack", []byte("old layout")))
	require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b1", domain.IndexKindFlat)))
	require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b2", domain.IndexKindFlat)))
	require.NoError(t, store.Save(ctx, snapshot(t, "globex", "g1", domain.IndexKindFlat)))

	keys, err := blobs.List(ctx, Prefix("acme"))
	require.NoError(t, err)
	assert.Equal(t, []string{ChunksKey("acme", "b2"), IndexKey("acme", "b2"), CurrentKey("acme")}, keys)

	ok, err := store.Exists(ctx, "globex")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_Save_Validation(t *testing.T) {
	store := New(memory.NewBlobStore())
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, nil), domain.ErrInvalidInput)

	for _, id := range []string{"", "a/b", "..", "current"} {
		bad := snapshot(t, "acme", id, domain.IndexKindFlat)
		assert.ErrorIs(t, store.Save(ctx, bad), domain.ErrInvalidInput, "build id %q", id)
	}

	mismatch := snapshot(t, "acme", "b1", domain.IndexKindFlat)
	mismatch.Chunks = mismatch.Chunks[:1]
	assert.ErrorIs(t, store.Save(ctx, mismatch), domain.ErrInvalidInput)

	badTenant := snapshot(t, "a/b", "b1", domain.IndexKindFlat)
	assert.ErrorIs(t, store.Save(ctx, badTenant), domain.ErrInvalidTenant)
}

func TestStore_Delete(t *testing.T) {
	blobs := memory.NewBlobStore()
	store := New(blobs)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b1", domain.IndexKindFlat)))
	ok, err := store.Exists(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "acme"))

	snap, err := store.Load(ctx, "acme")
	require.NoError(t, err)
	assert.Nil(t, snap)

	keys, err := blobs.List(ctx, Prefix("acme"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_TenantsAreIsolated(t *testing.T) {
	store := New(memory.NewBlobStore())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b1", domain.IndexKindFlat)))

	snap, err := store.Load(ctx, "globex")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestStore_OnFilesystem(t *testing.T) {
	blobs, err := fsblob.New(t.TempDir())
	require.NoError(t, err)
	store := New(blobs)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b1", domain.IndexKindHNSW)))
	require.NoError(t, store.Save(ctx, snapshot(t, "acme", "b2", domain.IndexKindHNSW)))

	got, err := New(blobs).Load(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "b2", got.BuildID)

	keys, err := blobs.List(ctx, Prefix("acme"))
	require.NoError(t, err)
	assert.Equal(t, []string{ChunksKey("acme", "b2"), IndexKey("acme", "b2"), CurrentKey("acme")}, keys)
}
