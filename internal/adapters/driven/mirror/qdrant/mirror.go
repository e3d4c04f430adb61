// Package qdrant replicates tenant indexes into a Qdrant collection so they
// can be searched from outside the process. The local index stays the
// source of truth; the replica is rebuilt wholesale on every publish.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Ensure Mirror implements the interface.
var _ driven.IndexMirror = (*Mirror)(nil)

// DefaultBatchSize is the number of points sent per upsert request.
const DefaultBatchSize = 256

// pointNamespace seeds deterministic point IDs.
var pointNamespace = uuid.MustParse("6f1c2a8e-4b5d-4c1e-9a7f-2d3e4f5a6b7c")

// client is the subset of *qdrant.Client the mirror needs.
type client interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Close() error
}

// Mirror publishes tenant chunks to Qdrant, one collection per tenant.
type Mirror struct {
	client    client
	batchSize int
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithBatchSize sets the number of points per upsert request.
func WithBatchSize(n int) Option {
	return func(m *Mirror) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// New connects to Qdrant over gRPC.
func New(host string, port int, opts ...Option) (*Mirror, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant %s:%d: %w", host, port, err)
	}
	return newMirror(c, opts...), nil
}

// FromSettings creates a mirror from settings, or returns nil when the
// mirror is disabled.
func FromSettings(s domain.MirrorSettings) (*Mirror, error) {
	if !s.QdrantEnabled {
		return nil, nil
	}
	return New(s.QdrantHost, s.QdrantPort)
}

func newMirror(c client, opts ...Option) *Mirror {
	m := &Mirror{client: c, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CollectionName returns the collection holding a tenant's chunks.
func CollectionName(tenant domain.TenantID) string {
	return "tenant_" + string(tenant)
}

// PointID derives a stable point ID from the tenant and chunk ID.
func PointID(tenant domain.TenantID, chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(string(tenant)+"/"+chunkID)).String()
}

// Publish replaces the tenant's collection with the given chunks.
// chunks[i] is stored with vectors[i].
func (m *Mirror) Publish(ctx context.Context, tenant domain.TenantID, chunks []domain.Chunk, vectors [][]float32) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrInvalidInput, len(chunks), len(vectors))
	}
	if len(vectors) == 0 {
		return m.Drop(ctx, tenant)
	}

	name := CollectionName(tenant)
	if err := m.Drop(ctx, tenant); err != nil {
		return err
	}

	err := m.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(len(vectors[0])),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	for start := 0; start < len(chunks); start += m.batchSize {
		end := min(start+m.batchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			c := chunks[i]
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(PointID(tenant, c.ID)),
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"tenant":   string(tenant),
					"chunk_id": c.ID,
					"document": c.DocumentName,
					"position": int64(c.Position),
					"content":  c.Content,
					"index":    int64(i),
				}),
			})
		}

		_, err := m.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("upsert %s [%d:%d]: %w", name, start, end, err)
		}
	}

	logger.Tenant(string(tenant)).Debug("mirrored %d chunks to qdrant collection %s", len(chunks), name)
	return nil
}

// Drop removes the tenant's collection if it exists.
func (m *Mirror) Drop(ctx context.Context, tenant domain.TenantID) error {
	name := CollectionName(tenant)
	exists, err := m.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if !exists {
		return nil
	}
	if err := m.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	return nil
}

// Close closes the gRPC connection.
func (m *Mirror) Close() error {
	return m.client.Close()
}
