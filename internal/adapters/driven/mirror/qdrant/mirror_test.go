package qdrant

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// mockClient records calls in memory.
type mockClient struct {
	collections map[string]uint64
	upserts     []*qdrant.UpsertPoints
	deleted     []string

	existsErr error
	upsertErr error
	closed    bool
}

func newMockClient() *mockClient {
	return &mockClient{collections: make(map[string]uint64)}
}

func (m *mockClient) CollectionExists(_ context.Context, name string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.collections[name]
	return ok, nil
}

func (m *mockClient) CreateCollection(_ context.Context, req *qdrant.CreateCollection) error {
	m.collections[req.CollectionName] = req.GetVectorsConfig().GetParams().GetSize()
	return nil
}

func (m *mockClient) DeleteCollection(_ context.Context, name string) error {
	delete(m.collections, name)
	m.deleted = append(m.deleted, name)
	return nil
}

func (m *mockClient) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	m.upserts = append(m.upserts, req)
	return &qdrant.UpdateResult{}, nil
}

func (m *mockClient) Close() error {
	m.closed = true
	return nil
}

func testChunks(n int) ([]domain.Chunk, [][]float32) {
	chunks := make([]domain.Chunk, n)
	vectors := make([][]float32, n)
	for i := range n {
		chunks[i] = domain.Chunk{
			ID:           "doc.txt#" + strconv.Itoa(i),
			DocumentName: "doc.txt",
			Position:     i,
			Content:      "chunk " + strconv.Itoa(i),
		}
		vectors[i] = []float32{float32(i), 1, 0}
	}
	return chunks, vectors
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "tenant_acme", CollectionName("acme"))
}

func TestPointID_Stable(t *testing.T) {
	a := PointID("acme", "doc.txt#0")
	assert.Equal(t, a, PointID("acme", "doc.txt#0"))
	assert.NotEqual(t, a, PointID("globex", "doc.txt#0"))
	assert.NotEqual(t, a, PointID("acme", "doc.txt#1"))
	assert.Len(t, a, 36)
}

func TestPublish_CreatesCollectionAndBatches(t *testing.T) {
	c := newMockClient()
	m := newMirror(c, WithBatchSize(2))
	chunks, vectors := testChunks(5)

	require.NoError(t, m.Publish(context.Background(), "acme", chunks, vectors))

	assert.Equal(t, uint64(3), c.collections["tenant_acme"])
	require.Len(t, c.upserts, 3)
	assert.Len(t, c.upserts[0].Points, 2)
	assert.Len(t, c.upserts[2].Points, 1)
	assert.True(t, c.upserts[0].GetWait())

	payload := c.upserts[0].Points[1].Payload
	assert.Equal(t, "doc.txt#1", payload["chunk_id"].GetStringValue())
	assert.Equal(t, "acme", payload["tenant"].GetStringValue())
	assert.Equal(t, int64(1), payload["position"].GetIntegerValue())
	assert.Equal(t, PointID("acme", "doc.txt#1"), c.upserts[0].Points[1].Id.GetUuid())
}

func TestPublish_ReplacesExistingCollection(t *testing.T) {
	c := newMockClient()
	c.collections["tenant_acme"] = 8
	m := newMirror(c)
	chunks, vectors := testChunks(1)

	require.NoError(t, m.Publish(context.Background(), "acme", chunks, vectors))

	assert.Equal(t, []string{"tenant_acme"}, c.deleted)
	assert.Equal(t, uint64(3), c.collections["tenant_acme"])
}

func TestPublish_Empty(t *testing.T) {
	c := newMockClient()
	c.collections["tenant_acme"] = 3
	m := newMirror(c)

	require.NoError(t, m.Publish(context.Background(), "acme", nil, nil))
	assert.NotContains(t, c.collections, "tenant_acme")
	assert.Empty(t, c.upserts)
}

func TestPublish_Errors(t *testing.T) {
	chunks, vectors := testChunks(2)

	t.Run("length mismatch", func(t *testing.T) {
		err := newMirror(newMockClient()).Publish(context.Background(), "acme", chunks, vectors[:1])
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("invalid tenant", func(t *testing.T) {
		err := newMirror(newMockClient()).Publish(context.Background(), "a/b", chunks, vectors)
		assert.ErrorIs(t, err, domain.ErrInvalidTenant)
	})

	t.Run("upsert failure", func(t *testing.T) {
		c := newMockClient()
		c.upsertErr = errors.New("unavailable")
		err := newMirror(c).Publish(context.Background(), "acme", chunks, vectors)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upsert tenant_acme")
	})

	t.Run("exists failure", func(t *testing.T) {
		c := newMockClient()
		c.existsErr = errors.New("unavailable")
		err := newMirror(c).Publish(context.Background(), "acme", chunks, vectors)
		assert.Error(t, err)
	})
}

func TestDrop_Missing(t *testing.T) {
	c := newMockClient()
	require.NoError(t, newMirror(c).Drop(context.Background(), "acme"))
	assert.Empty(t, c.deleted)
}

func TestFromSettings_Disabled(t *testing.T) {
	m, err := FromSettings(domain.MirrorSettings{})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestClose(t *testing.T) {
	c := newMockClient()
	require.NoError(t, newMirror(c).Close())
	assert.True(t, c.closed)
}
