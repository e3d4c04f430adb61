package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Watch reports document changes of every tenant until ctx is cancelled.
// Tenant directories created after Watch starts are picked up as they
// appear. The channel is closed when watching stops.
func (s *Source) Watch(ctx context.Context) (<-chan driven.DocumentChange, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: create watcher: %w", domain.ErrStorageFailure, err)
	}

	if err := watcher.Add(s.root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("%w: watch %s: %w", domain.ErrStorageFailure, s.root, err)
	}
	tenants, err := s.Tenants(ctx)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	for _, t := range tenants {
		if err := watcher.Add(s.TenantDir(t)); err != nil {
			logger.Warn("watch %s: %v", s.TenantDir(t), err)
		}
	}

	changes := make(chan driven.DocumentChange, 64)

	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if s.watchNewTenant(watcher, event) {
					continue
				}
				change := s.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("document watcher: %v", err)
			}
		}
	}()

	return changes, nil
}

// watchNewTenant adds a freshly created tenant directory to the watcher.
// It reports whether the event was about a tenant directory.
func (s *Source) watchNewTenant(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	if filepath.Dir(event.Name) != filepath.Clean(s.root) {
		return false
	}
	if _, ok := tenantFromDir(filepath.Base(event.Name)); !ok {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := watcher.Add(event.Name); err != nil {
				logger.Warn("watch %s: %v", event.Name, err)
			}
		}
	}
	return true
}

// handleFsEvent converts an fsnotify event inside a tenant directory into
// a document change. Hidden files, directories and chmod-only events are
// ignored.
func (s *Source) handleFsEvent(event fsnotify.Event) *driven.DocumentChange {
	name := filepath.Base(event.Name)
	if isHidden(name) {
		return nil
	}
	dir := filepath.Dir(event.Name)
	if filepath.Dir(dir) != filepath.Clean(s.root) {
		return nil
	}
	tenant, ok := tenantFromDir(filepath.Base(dir))
	if !ok {
		return nil
	}

	change := &driven.DocumentChange{Tenant: tenant, Name: name}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		change.Type = driven.ChangeDeleted
		return change
	case event.Has(fsnotify.Create):
		change.Type = driven.ChangeCreated
	case event.Has(fsnotify.Write):
		change.Type = driven.ChangeUpdated
	default:
		return nil
	}

	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	return change
}
