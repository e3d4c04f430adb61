package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// countingStore is an IndexStore serving one fixed snapshot per tenant.
type countingStore struct {
	snaps map[domain.TenantID]*domain.IndexSnapshot
	err   error
	loads atomic.Int32
}

func (s *countingStore) Save(context.Context, *domain.IndexSnapshot) error { return nil }

func (s *countingStore) Load(_ context.Context, tenant domain.TenantID) (*domain.IndexSnapshot, error) {
	s.loads.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.snaps[tenant], nil
}

func (s *countingStore) Exists(_ context.Context, tenant domain.TenantID) (bool, error) {
	return s.snaps[tenant] != nil, nil
}

func (s *countingStore) Delete(context.Context, domain.TenantID) error { return nil }

func TestIndexCache_GetLoadsOnce(t *testing.T) {
	store := &countingStore{snaps: map[domain.TenantID]*domain.IndexSnapshot{
		"acme": {Tenant: "acme", BuildID: "b1"},
	}}
	cache := NewIndexCache(store)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := cache.Get(context.Background(), "acme")
			assert.NoError(t, err)
			assert.Equal(t, "b1", snap.BuildID)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.loads.Load())
	assert.True(t, cache.Contains("acme"))
}

func TestIndexCache_MissingTenant(t *testing.T) {
	cache := NewIndexCache(&countingStore{})

	_, err := cache.Get(context.Background(), "acme")
	assert.ErrorIs(t, err, domain.ErrTenantNotIndexed)
	assert.False(t, cache.Contains("acme"))
	assert.Empty(t, cache.Tenants())
}

func TestIndexCache_LoadErrorNotCached(t *testing.T) {
	store := &countingStore{err: errors.New("bucket unreachable")}
	cache := NewIndexCache(store)

	_, err := cache.Get(context.Background(), "acme")
	require.Error(t, err)

	store.err = nil
	store.snaps = map[domain.TenantID]*domain.IndexSnapshot{"acme": {BuildID: "b2"}}
	snap, err := cache.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "b2", snap.BuildID)
}

func TestIndexCache_ReplaceEvictClear(t *testing.T) {
	cache := NewIndexCache(&countingStore{})
	old := &domain.IndexSnapshot{BuildID: "old"}
	cache.Replace("acme", old)
	cache.Replace("globex", &domain.IndexSnapshot{BuildID: "g"})

	held := cache.Peek("acme")
	cache.Replace("acme", &domain.IndexSnapshot{BuildID: "new"})

	assert.Equal(t, "old", held.BuildID, "readers keep the snapshot they hold")
	assert.Equal(t, "new", cache.Peek("acme").BuildID)
	assert.Equal(t, []domain.TenantID{"acme", "globex"}, cache.Tenants())

	cache.Evict("acme")
	assert.Nil(t, cache.Peek("acme"))
	assert.Equal(t, []domain.TenantID{"globex"}, cache.Tenants())

	cache.Evict("unknown")
	cache.Clear()
	assert.Empty(t, cache.Tenants())
}
