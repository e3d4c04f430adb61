package services

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// IndexCache holds the live index snapshot of every tenant that has been
// queried or rebuilt by this process. Reads are lock-free: each tenant's
// snapshot sits behind an atomic pointer and is never mutated.
type IndexCache struct {
	store driven.IndexStore

	mu      sync.RWMutex
	entries map[domain.TenantID]*cacheEntry
}

// cacheEntry serialises loads and swaps for one tenant.
type cacheEntry struct {
	mu   sync.Mutex
	snap atomic.Pointer[domain.IndexSnapshot]
}

// NewIndexCache creates an empty cache backed by store.
func NewIndexCache(store driven.IndexStore) *IndexCache {
	return &IndexCache{
		store:   store,
		entries: make(map[domain.TenantID]*cacheEntry),
	}
}

func (c *IndexCache) entry(tenant domain.TenantID) *cacheEntry {
	c.mu.RLock()
	e, ok := c.entries[tenant]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.entries[tenant]; !ok {
		e = &cacheEntry{}
		c.entries[tenant] = e
	}
	return e
}

// Get returns the tenant's snapshot, loading it from the index store on a
// miss. Concurrent misses for one tenant share a single load. A tenant
// without a persisted index yields domain.ErrTenantNotIndexed.
func (c *IndexCache) Get(ctx context.Context, tenant domain.TenantID) (*domain.IndexSnapshot, error) {
	e := c.entry(tenant)
	if snap := e.snap.Load(); snap != nil {
		return snap, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if snap := e.snap.Load(); snap != nil {
		return snap, nil
	}

	snap, err := c.store.Load(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, domain.ErrTenantNotIndexed
	}

	logger.Tenant(string(tenant)).Debug("loaded index %s (%d chunks) from storage", snap.BuildID, len(snap.Chunks))
	e.snap.Store(snap)
	return snap, nil
}

// Peek returns the cached snapshot without touching storage.
func (c *IndexCache) Peek(tenant domain.TenantID) *domain.IndexSnapshot {
	c.mu.RLock()
	e, ok := c.entries[tenant]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	return e.snap.Load()
}

// Replace atomically swaps in a new snapshot. Readers holding the previous
// snapshot keep using it until they finish.
func (c *IndexCache) Replace(tenant domain.TenantID, snap *domain.IndexSnapshot) {
	e := c.entry(tenant)
	e.mu.Lock()
	e.snap.Store(snap)
	e.mu.Unlock()
}

// Evict drops the tenant's snapshot. The next Get reloads it from storage.
func (c *IndexCache) Evict(tenant domain.TenantID) {
	c.mu.RLock()
	e, ok := c.entries[tenant]
	c.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.snap.Store(nil)
	e.mu.Unlock()
}

// Clear evicts every tenant.
func (c *IndexCache) Clear() {
	for _, tenant := range c.Tenants() {
		c.Evict(tenant)
	}
}

// Contains reports whether the tenant's snapshot is in memory.
func (c *IndexCache) Contains(tenant domain.TenantID) bool {
	return c.Peek(tenant) != nil
}

// Tenants returns the tenants with a cached snapshot, sorted.
func (c *IndexCache) Tenants() []domain.TenantID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.TenantID, 0, len(c.entries))
	for tenant, e := range c.entries {
		if e.snap.Load() != nil {
			out = append(out, tenant)
		}
	}
	slices.SortFunc(out, func(a, b domain.TenantID) int {
		return strings.Compare(string(a), string(b))
	})
	return out
}
