package domain

import "time"

// IndexKind selects the vector index topology for a tenant.
type IndexKind string

// Available index kinds.
const (
	// IndexKindFlat is an exact inner-product scan.
	IndexKindFlat IndexKind = "flat"

	// IndexKindHNSW is an approximate hierarchical navigable small world graph.
	IndexKindHNSW IndexKind = "hnsw"
)

// IsValid returns true if the index kind is recognised.
func (k IndexKind) IsValid() bool {
	return k == IndexKindFlat || k == IndexKindHNSW
}

// String returns the string representation.
func (k IndexKind) String() string {
	return string(k)
}

// Hit is one search result of a VectorIndex: the insertion position of the
// stored vector and its inner-product score with the query.
type Hit struct {
	Position int
	Score    float32
}

// VectorIndex is a built, immutable nearest-neighbour index.
// Implementations must be safe for concurrent Search calls.
type VectorIndex interface {
	// Kind returns the index topology.
	Kind() IndexKind

	// Len returns the number of stored vectors.
	Len() int

	// Dimensions returns the vector dimension.
	Dimensions() int

	// Normalized reports whether vectors were L2-normalised at build time.
	Normalized() bool

	// Search returns up to k hits, highest score first, ties by position.
	Search(query []float32, k int) ([]Hit, error)
}

// IndexSnapshot is a tenant's built index and the chunk each position maps to.
// It is never mutated after construction; a rebuild produces a new snapshot.
type IndexSnapshot struct {
	Tenant  TenantID
	BuildID string
	Model   string
	BuiltAt time.Time

	// Chunks[i] is the chunk stored at index position i.
	Chunks []Chunk

	Index VectorIndex
}

// Chunk returns the chunk stored at position, or false if out of range.
func (s *IndexSnapshot) Chunk(position int) (Chunk, bool) {
	if position < 0 || position >= len(s.Chunks) {
		return Chunk{}, false
	}
	return s.Chunks[position], true
}

// BuildStage is a step of the per-tenant rebuild state machine.
type BuildStage string

// Rebuild stages in execution order.
const (
	StageIdle          BuildStage = "idle"
	StageLoading       BuildStage = "loading"
	StageChunking      BuildStage = "chunking"
	StageEmbedding     BuildStage = "embedding"
	StageIndexBuilding BuildStage = "index_building"
	StagePersisting    BuildStage = "persisting"
)

// BuildStatus is the live state of a tenant's most recent rebuild.
type BuildStatus struct {
	Tenant     TenantID   `json:"company_id"`
	BuildID    string     `json:"build_id,omitempty"`
	Stage      BuildStage `json:"stage"`
	Documents  int        `json:"documents"`
	Chunks     int        `json:"chunks"`
	StartedAt  time.Time  `json:"started_at,omitzero"`
	FinishedAt time.Time  `json:"finished_at,omitzero"`
	Error      string     `json:"error,omitempty"`
}

// Running reports whether a rebuild is in flight.
func (s BuildStatus) Running() bool {
	return s.Stage != StageIdle && s.Stage != ""
}

// BuildOutcome is the final state of a recorded build.
type BuildOutcome string

// Build outcomes.
const (
	BuildSucceeded BuildOutcome = "succeeded"
	BuildFailed    BuildOutcome = "failed"
)

// BuildRecord is one row of a tenant's build history.
type BuildRecord struct {
	ID         string       `json:"id"`
	Tenant     TenantID     `json:"company_id"`
	Outcome    BuildOutcome `json:"outcome"`
	Kind       IndexKind    `json:"kind"`
	Model      string       `json:"model"`
	Documents  int          `json:"documents"`
	Chunks     int          `json:"chunks"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Error      string       `json:"error,omitempty"`
}
