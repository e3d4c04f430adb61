package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func TestDocsListCmd(t *testing.T) {
	ts := setupTestServices(t)
	ts.Tenants.Docs = []domain.DocumentInfo{
		{Name: "paris.txt", Size: 31, ModifiedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{Name: "report.pdf", Size: 3 * 1024 * 1024},
	}

	out, err := execute("docs", "list", "-t", "acme")

	require.NoError(t, err)
	assert.Contains(t, out, "Documents for acme:")
	assert.Contains(t, out, "paris.txt")
	assert.Contains(t, out, "31 B")
	assert.Contains(t, out, "2026-01-02 03:04:05")
	assert.Contains(t, out, "3.0 MiB")
}

func TestDocsListCmd_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := execute("docs", "list", "-t", "acme")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents for acme.")
}

func TestDocsListCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	ts.Tenants.Docs = []domain.DocumentInfo{{Name: "paris.txt", Size: 31}}

	out, err := execute("docs", "list", "-t", "acme", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"name": "paris.txt"`)
}

func TestDocsUploadCmd(t *testing.T) {
	ts := setupTestServices(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "paris.txt")
	require.NoError(t, os.WriteFile(path, []byte("Paris is the capital of France."), 0o600))

	out, err := execute("docs", "upload", "-t", "acme", path)

	require.NoError(t, err)
	assert.Equal(t, []string{"paris.txt"}, ts.Tenants.Uploaded)
	assert.Contains(t, out, "Uploaded paris.txt (31 B)")
}

func TestDocsUploadCmd_ContinuesPastMissingFile(t *testing.T) {
	ts := setupTestServices(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.md")
	require.NoError(t, os.WriteFile(good, []byte("# hi"), 0o600))

	_, err := execute("docs", "upload", "-t", "acme", filepath.Join(dir, "missing.txt"), good)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.txt")
	assert.Equal(t, []string{"good.md"}, ts.Tenants.Uploaded)
}

func TestDocsUploadCmd_RequiresFile(t *testing.T) {
	setupTestServices(t)

	_, err := execute("docs", "upload", "-t", "acme")

	assert.Error(t, err)
}

func TestDocsDeleteCmd(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute("docs", "delete", "-t", "acme", "a.txt", "b.pdf")

	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.pdf"}, ts.Tenants.Deleted)
	assert.Contains(t, out, "Deleted a.txt")
	assert.Contains(t, out, "Deleted b.pdf")
}

func TestDocsDeleteCmd_NotFound(t *testing.T) {
	ts := setupTestServices(t)
	ts.Tenants.Err = domain.ErrNotFound

	_, err := execute("docs", "delete", "-t", "acme", "ghost.txt")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{2048, "2.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatBytes(tt.n))
		})
	}
}
