package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.IndexService = (*Orchestrator)(nil)

// bookkeepingTimeout bounds catalogue writes that must outlive a cancelled build.
const bookkeepingTimeout = 10 * time.Second

// flight is one rebuild shared by every caller that asks for it.
type flight struct {
	ctx    context.Context
	done   chan struct{}
	status domain.BuildStatus
	err    error
}

func newFlight(ctx context.Context) *flight {
	return &flight{ctx: ctx, done: make(chan struct{})}
}

// Orchestrator rebuilds tenant indexes from scratch: load, chunk, embed,
// build, persist, then swap the cached snapshot. Rebuilds of one tenant are
// serialised: requests arriving while a build runs collapse into a single
// follow-up build that starts when it finishes. Different tenants build in
// parallel.
type Orchestrator struct {
	loader    *Loader
	chunker   driven.Chunker
	embedder  driven.Embedder
	builder   driven.IndexBuilder
	store     driven.IndexStore
	cache     *IndexCache
	settings  domain.IndexSettings
	normalize bool

	// Optional collaborators.
	catalogue driven.CatalogueStore
	mirror    driven.IndexMirror

	newID func() string
	now   func() time.Time

	mu      sync.Mutex
	status  map[domain.TenantID]domain.BuildStatus
	flights map[domain.TenantID]*flight
	pending map[domain.TenantID]*flight

	background sync.WaitGroup
}

// NewOrchestrator creates a build orchestrator.
func NewOrchestrator(
	loader *Loader,
	chunker driven.Chunker,
	embedder driven.Embedder,
	builder driven.IndexBuilder,
	store driven.IndexStore,
	cache *IndexCache,
	settings domain.IndexSettings,
	normalize bool,
) *Orchestrator {
	return &Orchestrator{
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		builder:   builder,
		store:     store,
		cache:     cache,
		settings:  settings,
		normalize: normalize,
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
		status:    make(map[domain.TenantID]domain.BuildStatus),
		flights:   make(map[domain.TenantID]*flight),
		pending:   make(map[domain.TenantID]*flight),
	}
}

// SetCatalogue records every build in the given catalogue.
func (o *Orchestrator) SetCatalogue(c driven.CatalogueStore) {
	o.catalogue = c
}

// SetMirror publishes every successful build to the given mirror.
func (o *Orchestrator) SetMirror(m driven.IndexMirror) {
	o.mirror = m
}

// Rebuild replaces the tenant's index. A caller arriving while a rebuild of
// the same tenant runs does not join it, since that build may have loaded
// the documents before the caller's change. It waits for the next build
// instead, which every such caller shares and which runs under the first
// one's context values without its cancellation.
func (o *Orchestrator) Rebuild(ctx context.Context, tenant domain.TenantID) (*domain.BuildStatus, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if _, running := o.flights[tenant]; running {
		next, ok := o.pending[tenant]
		if !ok {
			next = newFlight(context.WithoutCancel(ctx))
			o.pending[tenant] = next
		}
		o.mu.Unlock()
		logger.Tenant(string(tenant)).Debug("rebuild already running, queued a follow-up")
		select {
		case <-next.done:
			status := next.status
			return &status, next.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := newFlight(ctx)
	o.flights[tenant] = f
	o.mu.Unlock()

	o.run(tenant, f)

	status := f.status
	return &status, f.err
}

// run executes f and then every follow-up queued while it ran.
func (o *Orchestrator) run(tenant domain.TenantID, f *flight) {
	for f != nil {
		f.status, f.err = o.build(f.ctx, tenant)

		o.mu.Lock()
		next, ok := o.pending[tenant]
		if ok {
			delete(o.pending, tenant)
			o.flights[tenant] = next
		} else {
			delete(o.flights, tenant)
		}
		o.mu.Unlock()

		close(f.done)
		f = next
	}
}

// RebuildAsync starts a rebuild on a background goroutine. The rebuild is
// not tied to the caller's lifetime; its outcome is logged.
func (o *Orchestrator) RebuildAsync(tenant domain.TenantID) {
	o.background.Add(1)
	go func() {
		defer o.background.Done()

		status, err := o.Rebuild(context.Background(), tenant)
		log := logger.Tenant(string(tenant))
		switch {
		case errors.Is(err, domain.ErrNoContent):
			log.Info("background rebuild: %v", err)
		case err != nil:
			log.Error("background rebuild failed: %v", err)
		default:
			log.Info("background rebuild %s done: %d documents, %d chunks", status.BuildID, status.Documents, status.Chunks)
		}
	}()
}

// Wait blocks until every background rebuild has finished.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

// Status returns the tenant's current or most recent build status.
func (o *Orchestrator) Status(tenant domain.TenantID) domain.BuildStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s, ok := o.status[tenant]; ok {
		return s
	}
	return domain.BuildStatus{Tenant: tenant, Stage: domain.StageIdle}
}

func (o *Orchestrator) setStage(status *domain.BuildStatus, stage domain.BuildStage) {
	status.Stage = stage
	o.mu.Lock()
	o.status[status.Tenant] = *status
	o.mu.Unlock()
	logger.Tenant(string(status.Tenant)).Debug("build %s: %s", status.BuildID, stage)
}

// build runs the stages. On failure nothing persisted or cached changes.
func (o *Orchestrator) build(ctx context.Context, tenant domain.TenantID) (domain.BuildStatus, error) {
	status := domain.BuildStatus{
		Tenant:    tenant,
		BuildID:   o.newID(),
		StartedAt: o.now().UTC(),
	}
	log := logger.Tenant(string(tenant))
	logger.Section(fmt.Sprintf("Rebuild %s", tenant))

	fail := func(stage domain.BuildStage, err error) (domain.BuildStatus, error) {
		err = fmt.Errorf("%w: %s: %w", domain.ErrBuildFailed, stage, err)
		status.FinishedAt = o.now().UTC()
		status.Error = err.Error()
		o.setStage(&status, domain.StageIdle)
		o.record(ctx, status, domain.BuildFailed)
		if !errors.Is(err, domain.ErrNoContent) {
			log.Warn("build %s failed: %v", status.BuildID, err)
		}
		return status, err
	}

	// Loading.
	o.setStage(&status, domain.StageLoading)
	seq, err := o.loader.Documents(ctx, tenant)
	if err != nil {
		return fail(domain.StageLoading, err)
	}
	var docs []domain.Document
	for doc := range seq {
		docs = append(docs, doc)
	}
	if err := ctx.Err(); err != nil {
		return fail(domain.StageLoading, err)
	}
	status.Documents = len(docs)
	if len(docs) == 0 {
		return fail(domain.StageLoading, fmt.Errorf("%w: tenant has no extractable documents", domain.ErrNoContent))
	}

	// Chunking.
	o.setStage(&status, domain.StageChunking)
	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, o.chunker.ChunkDocument(doc)...)
	}
	status.Chunks = len(chunks)
	if len(chunks) == 0 {
		return fail(domain.StageChunking, fmt.Errorf("%w: documents produced no chunks", domain.ErrNoContent))
	}
	log.Debug("%d documents, %d chunks", len(docs), len(chunks))

	// Embedding.
	o.setStage(&status, domain.StageEmbedding)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := o.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fail(domain.StageEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return fail(domain.StageEmbedding, fmt.Errorf("%w: %d vectors for %d chunks", domain.ErrEmbeddingFailed, len(vectors), len(chunks)))
	}

	// Index building.
	o.setStage(&status, domain.StageIndexBuilding)
	index, err := o.builder.Build(vectors, o.settings, o.normalize)
	if err != nil {
		return fail(domain.StageIndexBuilding, err)
	}

	// Persisting.
	o.setStage(&status, domain.StagePersisting)
	snap := &domain.IndexSnapshot{
		Tenant:  tenant,
		BuildID: status.BuildID,
		Model:   o.embedder.ModelName(),
		BuiltAt: o.now().UTC(),
		Chunks:  chunks,
		Index:   index,
	}
	if err := o.store.Save(ctx, snap); err != nil {
		return fail(domain.StagePersisting, err)
	}
	o.cache.Replace(tenant, snap)

	status.FinishedAt = snap.BuiltAt
	o.setStage(&status, domain.StageIdle)
	o.record(ctx, status, domain.BuildSucceeded)
	log.Info("build %s: indexed %d chunks from %d documents", status.BuildID, len(chunks), len(docs))

	if o.mirror != nil {
		if err := o.mirror.Publish(ctx, tenant, chunks, vectors); err != nil {
			log.Warn("mirror publish failed: %v", err)
		}
	}

	return status, nil
}

// record writes the build to the catalogue. Failures are logged only.
func (o *Orchestrator) record(ctx context.Context, status domain.BuildStatus, outcome domain.BuildOutcome) {
	if o.catalogue == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	rec := domain.BuildRecord{
		ID:         status.BuildID,
		Tenant:     status.Tenant,
		Outcome:    outcome,
		Kind:       o.settings.Kind,
		Model:      o.embedder.ModelName(),
		Documents:  status.Documents,
		Chunks:     status.Chunks,
		StartedAt:  status.StartedAt,
		FinishedAt: status.FinishedAt,
		Error:      status.Error,
	}
	if err := o.catalogue.RecordBuild(ctx, rec); err != nil {
		logger.Tenant(string(status.Tenant)).Warn("record build %s: %v", status.BuildID, err)
	}
}
