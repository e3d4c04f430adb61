// Package filesystem stores tenant documents as plain files under
// <root>/company_<tenant>/ and reports changes to them through fsnotify.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure Source implements the interfaces.
var (
	_ driven.DocumentSource  = (*Source)(nil)
	_ driven.DocumentWatcher = (*Source)(nil)
)

const tenantDirPrefix = "company_"

// Source is a filesystem-backed document store.
type Source struct {
	root string
}

// New creates a source rooted at dir, creating it if needed.
func New(dir string) (*Source, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty documents directory", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create documents directory: %w", domain.ErrStorageFailure, err)
	}
	return &Source{root: dir}, nil
}

// Root returns the base directory.
func (s *Source) Root() string {
	return s.root
}

// TenantDir returns the directory holding a tenant's documents.
func (s *Source) TenantDir(tenant domain.TenantID) string {
	return filepath.Join(s.root, tenant.StorageName())
}

func (s *Source) documentPath(tenant domain.TenantID, name string) (string, error) {
	if err := tenant.Validate(); err != nil {
		return "", err
	}
	if err := domain.ValidateDocumentName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.TenantDir(tenant), name), nil
}

// List returns the tenant's documents sorted by name. Hidden files and
// subdirectories are ignored. A tenant without a directory has no documents.
func (s *Source) List(ctx context.Context, tenant domain.TenantID) ([]domain.DocumentInfo, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.TenantDir(tenant))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.DocumentInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %w", domain.ErrStorageFailure, err)
	}

	docs := make([]domain.DocumentInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || isHidden(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		docs = append(docs, toInfo(info))
	}
	slices.SortFunc(docs, func(a, b domain.DocumentInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return docs, nil
}

// Open opens a document for reading.
func (s *Source) Open(ctx context.Context, tenant domain.TenantID, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.documentPath(tenant, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("document %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrStorageFailure, name, err)
	}
	return f, nil
}

// Put stores r under name. The content is written to a hidden temporary
// file and renamed into place, so readers never see a partial document.
func (s *Source) Put(ctx context.Context, tenant domain.TenantID, name string, r io.Reader) (domain.DocumentInfo, error) {
	p, err := s.documentPath(tenant, name)
	if err != nil {
		return domain.DocumentInfo{}, err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("%w: create tenant directory: %w", domain.ErrStorageFailure, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("%w: create upload: %w", domain.ErrStorageFailure, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.DocumentInfo{}, ctxErr
		}
		return domain.DocumentInfo{}, fmt.Errorf("%w: write %s: %w", domain.ErrStorageFailure, name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.DocumentInfo{}, fmt.Errorf("%w: sync %s: %w", domain.ErrStorageFailure, name, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("%w: close %s: %w", domain.ErrStorageFailure, name, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("%w: store %s: %w", domain.ErrStorageFailure, name, err)
	}

	info, err := os.Stat(p)
	if err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("%w: stat %s: %w", domain.ErrStorageFailure, name, err)
	}
	return toInfo(info), nil
}

// Remove deletes a document.
func (s *Source) Remove(ctx context.Context, tenant domain.TenantID, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.documentPath(tenant, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("document %s: %w", name, domain.ErrNotFound)
		}
		return fmt.Errorf("%w: remove %s: %w", domain.ErrStorageFailure, name, err)
	}
	return nil
}

// Tenants lists every tenant that has a document directory, sorted.
func (s *Source) Tenants(ctx context.Context) ([]domain.TenantID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list tenants: %w", domain.ErrStorageFailure, err)
	}
	var out []domain.TenantID
	for _, e := range entries {
		if t, ok := tenantFromDir(e.Name()); ok && e.IsDir() {
			out = append(out, t)
		}
	}
	return out, nil
}

func toInfo(info fs.FileInfo) domain.DocumentInfo {
	return domain.DocumentInfo{
		Name:       info.Name(),
		Size:       info.Size(),
		MIMEType:   domain.DetectMIMEType(info.Name()),
		ModifiedAt: info.ModTime().UTC(),
	}
}

// tenantFromDir parses "company_<id>" back into a tenant.
func tenantFromDir(name string) (domain.TenantID, bool) {
	id, ok := strings.CutPrefix(name, tenantDirPrefix)
	if !ok {
		return "", false
	}
	t := domain.TenantID(id)
	if t.Validate() != nil {
		return "", false
	}
	return t, true
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// contextReader stops a copy once ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
