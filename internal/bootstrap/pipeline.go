// Package bootstrap wires providers, storage and the record store into a
// pipeline for the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"podstudio/internal/domain"
	"podstudio/internal/imageref"
	"podstudio/internal/infra"
	"podstudio/internal/infra/credentials"
	"podstudio/internal/pipeline"
	"podstudio/internal/providers/copywriter"
	"podstudio/internal/providers/genai"
	"podstudio/internal/providers/printful"
	"podstudio/internal/storage"
)

// Pipeline bundles the components one flow needs.
type Pipeline struct {
	Flow     *pipeline.Flow
	Gateway  *pipeline.Gateway
	Catalog  pipeline.Catalog
	Objects  storage.ObjectStore
	Printful *printful.Client
	Resolver *imageref.Resolver
}

// Build creates the pipeline. creds may be nil; it is consulted for provider
// tokens missing from the environment. repo may be nil when nothing is saved.
func Build(ctx context.Context, cfg *infra.Config, logger *infra.Logger, creds *credentials.Store, repo domain.DesignRepository) (*Pipeline, error) {
	geminiKey, err := creds.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("load gemini key: %w", err)
	}
	printfulKey, err := creds.Resolve(ctx, credentials.ProviderPrintful, cfg.PrintfulAPIKey)
	if err != nil {
		return nil, fmt.Errorf("load printful token: %w", err)
	}

	objects, err := storage.New(cfg)
	if err != nil {
		return nil, err
	}

	imageClient, err := genai.NewClient(genai.Options{
		APIKey:  geminiKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiImageModel,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	pf, err := printful.NewClient(printful.Options{
		APIKey:        printfulKey,
		BaseURL:       cfg.PrintfulBaseURL,
		StoreID:       cfg.PrintfulStoreID,
		RatePerMinute: cfg.PrintfulRatePerMinute,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	var writer copywriter.Copywriter = copywriter.NewStaticCopywriter()
	if cfg.GeminiTextModel != "" {
		gw, err := copywriter.NewGeminiCopywriter(ctx, copywriter.GeminiOptions{
			APIKey:   geminiKey,
			Model:    cfg.GeminiTextModel,
			Fallback: writer,
			Logger:   logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("bootstrap: gemini copywriter unavailable; using static names")
		} else {
			writer = gw
		}
	}

	resolver := imageref.NewResolver(imageref.Options{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     logger,
	})
	artifacts := pipeline.NewArtifactStore(objects, resolver, pipeline.ArtifactOptions{
		ProbeClient: &http.Client{Timeout: 10 * time.Second},
		Logger:      logger,
	})

	var gateway *pipeline.Gateway
	if repo != nil {
		gateway = pipeline.NewGateway(artifacts, repo, logger)
	}

	flow := pipeline.NewFlow(pipeline.FlowDeps{
		Catalog: pf,
		Compositor: pipeline.NewCompositor(imageClient, resolver, pipeline.CompositorOptions{
			MaxAttempts: cfg.GenerationMaxAttempts,
			RetryDelay:  cfg.GenerationRetryDelay,
			Logger:      logger,
		}),
		Artifacts: artifacts,
		Mockups: pipeline.NewMockupCoordinator(pf, pipeline.CoordinatorOptions{
			PollInterval: cfg.MockupPollInterval,
			PollAttempts: cfg.MockupPollAttempts,
			Logger:       logger,
		}),
		Publisher: pipeline.NewPublisher(pf, pipeline.PublisherOptions{Copywriter: writer, Logger: logger}),
		Gateway:   gateway,
		Logger:    logger,
	})

	return &Pipeline{Flow: flow, Gateway: gateway, Catalog: pf, Objects: objects, Printful: pf, Resolver: resolver}, nil
}
