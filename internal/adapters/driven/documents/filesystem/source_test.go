package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func newSource(t *testing.T) *Source {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNew_EmptyDir(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSource_PutOpenRoundTrip(t *testing.T) {
	s := newSource(t)
	ctx := context.Background()

	info, err := s.Put(ctx, "acme", "notes.md", strings.NewReader("# Title\nbody"))
	require.NoError(t, err)
	assert.Equal(t, "notes.md", info.Name)
	assert.Equal(t, int64(12), info.Size)
	assert.Equal(t, domain.MIMEMarkdown, info.MIMEType)

	rc, err := s.Open(ctx, "acme", "notes.md")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "# Title\nbody", string(data))

	_, err = os.Stat(filepath.Join(s.Root(), "company_acme", "notes.md"))
	assert.NoError(t, err)
}

func TestSource_PutReplaces(t *testing.T) {
	s := newSource(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "acme", "a.txt", strings.NewReader("old"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "acme", "a.txt", strings.NewReader("new content"))
	require.NoError(t, err)

	docs, err := s.List(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(11), docs[0].Size)
}

func TestSource_PutRejectsBadNames(t *testing.T) {
	s := newSource(t)
	ctx := context.Background()

	for _, name := range []string{"", "..", "../escape.txt", "dir/file.txt", ".hidden"} {
		_, err := s.Put(ctx, "acme", name, strings.NewReader("x"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, name)
	}

	_, err := s.Put(ctx, "../other", "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
}

func TestSource_PutCancelled(t *testing.T) {
	s := newSource(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Put(ctx, "acme", "a.txt", strings.NewReader("content"))
	assert.ErrorIs(t, err, context.Canceled)

	docs, err := s.List(context.Background(), "acme")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSource_List(t *testing.T) {
	s := newSource(t)
	ctx := context.Background()

	t.Run("unknown tenant is empty", func(t *testing.T) {
		docs, err := s.List(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("sorted, skips hidden files and directories", func(t *testing.T) {
		dir := filepath.Join(s.Root(), "company_acme")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0700))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("a"), 0600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".upload-123"), []byte("tmp"), 0600))

		docs, err := s.List(ctx, "acme")
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "a.pdf", docs[0].Name)
		assert.Equal(t, domain.MIMEPDF, docs[0].MIMEType)
		assert.Equal(t, "b.txt", docs[1].Name)
	})

	t.Run("invalid tenant", func(t *testing.T) {
		_, err := s.List(ctx, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestSource_OpenMissing(t *testing.T) {
	s := newSource(t)
	_, err := s.Open(context.Background(), "acme", "missing.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSource_Remove(t *testing.T) {
	s := newSource(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "acme", "a.txt", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, "acme", "a.txt"))
	assert.ErrorIs(t, s.Remove(ctx, "acme", "a.txt"), domain.ErrNotFound)

	docs, err := s.List(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSource_TenantIsolation(t *testing.T) {
	s := newSource(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "acme", "shared.txt", strings.NewReader("acme data"))
	require.NoError(t, err)

	_, err = s.Open(ctx, "globex", "shared.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSource_Tenants(t *testing.T) {
	s := newSource(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "globex", "a.txt", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "acme", "a.txt", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "not_a_tenant"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "company_file"), nil, 0600))

	tenants, err := s.Tenants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.TenantID{"acme", "globex"}, tenants)
}

func TestTenantFromDir(t *testing.T) {
	tests := []struct {
		dir    string
		tenant domain.TenantID
		ok     bool
	}{
		{"company_acme", "acme", true},
		{"company_a-b_1", "a-b_1", true},
		{"company_", "", false},
		{"acme", "", false},
		{"company_bad name", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			tenant, ok := tenantFromDir(tt.dir)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.tenant, tenant)
		})
	}
}
