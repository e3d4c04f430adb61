package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// DefaultSettleDelay is how long a tenant's documents must stay unchanged
// before a watch-triggered rebuild starts.
const DefaultSettleDelay = 2 * time.Second

// Watcher rebuilds tenants whose documents change on disk. Bursts of
// changes to one tenant collapse into a single rebuild.
type Watcher struct {
	source  driven.DocumentWatcher
	indexer driving.IndexService
	settle  time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher. A non-positive settle uses DefaultSettleDelay.
func NewWatcher(source driven.DocumentWatcher, indexer driving.IndexService, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Watcher{
		source:  source,
		indexer: indexer,
		settle:  settle,
	}
}

// Start watches until ctx is cancelled or Stop is called. It blocks.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	changes, err := w.source.Watch(ctx)
	if err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}

	return w.run(ctx, changes, stopCh)
}

// Stop ends the watch loop and waits for started rebuilds to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

func (w *Watcher) run(ctx context.Context, changes <-chan driven.DocumentChange, stopCh <-chan struct{}) error {
	pending := make(map[domain.TenantID]time.Time)

	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case change, ok := <-changes:
			if !ok {
				w.wg.Wait()
				return nil
			}
			logger.Tenant(string(change.Tenant)).Debug("%s %s", change.Type, change.Name)
			pending[change.Tenant] = time.Now().Add(w.settle)
			timer.Reset(w.settle)
		case <-timer.C:
			now := time.Now()
			for _, tenant := range dueTenants(pending, now) {
				delete(pending, tenant)
				w.rebuild(ctx, tenant)
			}
			if next, ok := earliest(pending); ok {
				timer.Reset(next.Sub(now))
			}
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context, tenant domain.TenantID) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		log := logger.Tenant(string(tenant))
		status, err := w.indexer.Rebuild(ctx, tenant)
		switch {
		case errors.Is(err, domain.ErrNoContent):
			log.Info("watch rebuild: %v", err)
		case err != nil:
			log.Error("watch rebuild failed: %v", err)
		default:
			log.Info("watch rebuild %s: %d documents, %d chunks", status.BuildID, status.Documents, status.Chunks)
		}
	}()
}

// dueTenants returns the tenants whose settle time has passed, sorted.
func dueTenants(pending map[domain.TenantID]time.Time, now time.Time) []domain.TenantID {
	var due []domain.TenantID
	for tenant, at := range pending {
		if !at.After(now) {
			due = append(due, tenant)
		}
	}
	slices.SortFunc(due, func(a, b domain.TenantID) int {
		return strings.Compare(string(a), string(b))
	})
	return due
}

func earliest(pending map[domain.TenantID]time.Time) (time.Time, bool) {
	var first time.Time
	for _, at := range pending {
		if first.IsZero() || at.Before(first) {
			first = at
		}
	}
	return first, !first.IsZero()
}
