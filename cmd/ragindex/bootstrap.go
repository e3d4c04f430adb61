package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/auth"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/documents/filesystem"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/mirror/qdrant"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/blob"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/indexstore"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragindex/internal/core/services"
	"github.com/custodia-labs/ragindex/internal/logger"
	"github.com/custodia-labs/ragindex/internal/normalisers"
	"github.com/custodia-labs/ragindex/internal/normalisers/pdf"
	"github.com/custodia-labs/ragindex/internal/postprocessors/chunker"
)

// bootstrap wires adapters into services. Settings always load; when the
// AI providers cannot be created the pipeline services are left nil and
// the reason is reported through Services.Unavailable.
func bootstrap(ctx context.Context, configDir string) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	prompts, err := file.NewPromptStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.ConfigValidator{})
	out := &cli.Services{Settings: settingsService}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}
	if err := settingsService.Validate(settings); err != nil {
		out.Unavailable = err
		return out, nil
	}

	if settings.Auth.JWTSecret != "" {
		verifier, err := auth.FromSettings(settings.Auth)
		if err != nil {
			return nil, err
		}
		out.Verifier = verifier
	}

	aiServices, err := ai.NewServices(settings, prompts)
	if err != nil {
		logger.Debug("pipeline unavailable: %v", err)
		out.Unavailable = err
		return out, nil
	}

	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close: %v", err)
			}
		}
	}
	closers = append(closers, func() error { aiServices.Close(); return nil })

	blobs, err := blob.Open(ctx, settings.Storage)
	if err != nil {
		closeAll()
		return nil, err
	}
	closers = append(closers, blobs.Close)

	catalogue, err := sqlite.NewStore(settings.Storage.DataDir)
	if err != nil {
		closeAll()
		return nil, err
	}
	closers = append(closers, catalogue.Close)

	source, err := filesystem.New(settings.Storage.DataDir)
	if err != nil {
		closeAll()
		return nil, err
	}

	store := indexstore.New(blobs)
	cache := services.NewIndexCache(store)
	loader := services.NewLoader(source, normalisers.NewDefaultRegistry())

	orchestrator := services.NewOrchestrator(
		loader,
		chunker.FromSettings(settings.Chunking),
		aiServices.Embedder,
		vectorindex.NewBuilder(),
		store,
		cache,
		settings.Index,
		settings.Embedding.Normalize,
	)
	orchestrator.SetCatalogue(catalogue)

	mirror, err := qdrant.FromSettings(settings.Mirror)
	if err != nil {
		logger.Warn("qdrant mirror disabled: %v", err)
	} else if mirror != nil {
		orchestrator.SetMirror(mirror)
		closers = append(closers, mirror.Close)
	}

	query := services.NewQueryService(
		services.NewRetriever(cache, aiServices.Embedder),
		aiServices.Reranker,
		services.NewAnswerGenerator(aiServices.Generator, prompts, settings.LLM.Temperature),
		settings.Retrieval,
		settings.Answer.Language,
	)

	tenants := services.NewTenantService(source, store, cache, orchestrator)
	tenants.SetCatalogue(catalogue)

	out.Query = query
	out.Index = orchestrator
	out.Tenants = tenants
	out.Watcher = services.NewWatcher(source, orchestrator, services.DefaultSettleDelay)
	out.Health = healthChecks(aiServices, blobs.Ping)
	out.Close = func() {
		// Uploads and deletions leave rebuilds running in the background.
		orchestrator.Wait()
		closeAll()
	}
	return out, nil
}

func healthChecks(svc *ai.Services, pingStorage func(context.Context) error) []cli.HealthCheck {
	checks := []cli.HealthCheck{
		{Name: "embedding", Ping: svc.Embedder.Ping},
	}
	if svc.Generator != nil {
		checks = append(checks, cli.HealthCheck{Name: "llm", Ping: svc.Generator.Ping})
	} else {
		checks = append(checks, cli.HealthCheck{Name: "llm", Ping: func(context.Context) error {
			return errors.New("not configured (set llm.provider and its API key)")
		}})
	}
	return append(checks,
		cli.HealthCheck{Name: "storage", Ping: pingStorage},
		cli.HealthCheck{Name: "pdftotext", Ping: pingPDFTool},
	)
}

func pingPDFTool(context.Context) error {
	if err := pdf.CheckAvailable(); err != nil {
		return fmt.Errorf("%w\n%s", err, pdf.InstallInstructions())
	}
	return nil
}
