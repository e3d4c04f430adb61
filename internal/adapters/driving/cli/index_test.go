package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func TestIndexRebuildCmd(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute("index", "rebuild", "-t", "acme")

	require.NoError(t, err)
	assert.Equal(t, []domain.TenantID{"acme"}, ts.Index.Rebuilt)
	assert.Contains(t, out, "Rebuilding index for acme")
	assert.Contains(t, out, "Indexed 2 documents into 7 chunks")
}

func TestIndexRebuildCmd_EmptyTenant(t *testing.T) {
	ts := setupTestServices(t)
	ts.Index.Err = domain.ErrNoContent

	_, err := execute("index", "rebuild", "-t", "acme2")

	assert.ErrorIs(t, err, domain.ErrNoContent)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestIndexRebuildCmd_AdminToken(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute("index", "rebuild", "--token", "admin-token", "-t", "globex")

	require.NoError(t, err)
	assert.Equal(t, []domain.TenantID{"globex"}, ts.Index.Rebuilt)
}

func TestIndexStatusCmd(t *testing.T) {
	ts := setupTestServices(t)
	finished := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	ts.Tenants.Stat = domain.TenantStats{
		IndexExists: true,
		InCache:     true,
		LastBuild: &domain.BuildRecord{
			Outcome:    domain.BuildSucceeded,
			Documents:  2,
			Chunks:     7,
			Model:      "text-embedding-3-large",
			FinishedAt: finished,
		},
	}

	out, err := execute("index", "status", "-t", "acme")

	require.NoError(t, err)
	assert.Contains(t, out, "Company: acme")
	assert.Contains(t, out, "Rebuild: idle")
	assert.Contains(t, out, "Index: built")
	assert.Contains(t, out, "Cache: loaded")
	assert.Contains(t, out, "Last build: succeeded at 2026-03-01 09:30:00 (2 documents, 7 chunks, text-embedding-3-large)")
}

func TestIndexStatusCmd_Running(t *testing.T) {
	ts := setupTestServices(t)
	ts.Index.Current = domain.BuildStatus{
		Stage:     domain.StageEmbedding,
		StartedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	out, err := execute("index", "status", "-t", "acme")

	require.NoError(t, err)
	assert.Contains(t, out, "Rebuild: embedding (started 2026-03-01 09:00:00)")
	assert.Contains(t, out, "Index: not built")
}

func TestIndexStatusCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	ts.Index.Current = domain.BuildStatus{Stage: domain.StageLoading}

	out, err := execute("index", "status", "-t", "acme", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"company_id": "acme"`)
	assert.Contains(t, out, `"stage": "loading"`)
}

func TestIndexCmd_ServiceNotConfigured(t *testing.T) {
	setupTestServices(t)
	indexService = nil

	for _, sub := range []string{"rebuild", "status"} {
		t.Run(sub, func(t *testing.T) {
			_, err := execute("index", sub, "-t", "acme")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "index service not configured")
		})
	}
}

func TestIndexHistoryCmd(t *testing.T) {
	ts := setupTestServices(t)
	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	ts.Tenants.Builds = []domain.BuildRecord{
		{Outcome: domain.BuildFailed, StartedAt: started.Add(time.Hour), FinishedAt: started.Add(time.Hour + time.Second), Error: "embedding failed"},
		{Outcome: domain.BuildSucceeded, Documents: 2, Chunks: 7, StartedAt: started, FinishedAt: started.Add(1500 * time.Millisecond)},
	}

	out, err := execute("index", "history", "-t", "acme")

	require.NoError(t, err)
	assert.Contains(t, out, "2026-03-01 10:30:01  failed")
	assert.Contains(t, out, "  embedding failed")
	assert.Contains(t, out, "succeeded    2 docs      7 chunks  1.5s")
}

func TestIndexHistoryCmd_Limit(t *testing.T) {
	ts := setupTestServices(t)
	ts.Tenants.Builds = []domain.BuildRecord{
		{Outcome: domain.BuildFailed},
		{Outcome: domain.BuildSucceeded},
	}

	out, err := execute("index", "history", "-t", "acme", "-n", "1", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"outcome": "failed"`)
	assert.NotContains(t, out, "succeeded")
}

func TestIndexHistoryCmd_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := execute("index", "history", "-t", "acme")

	require.NoError(t, err)
	assert.Contains(t, out, "No builds recorded.")
}
