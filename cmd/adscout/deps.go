package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tobias/adscout/internal/adsource"
	"github.com/tobias/adscout/internal/aggregate"
	"github.com/tobias/adscout/internal/config"
	"github.com/tobias/adscout/internal/fetch"
	"github.com/tobias/adscout/internal/keywords"
	"github.com/tobias/adscout/internal/pipeline"
	"github.com/tobias/adscout/internal/store"
	"github.com/tobias/adscout/internal/verify"
)

// loadMergedConfig reads the optional config file and fills gaps from the
// environment.
func loadMergedConfig(path string) (*config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	merged := cfg.MergeWithDefaults(config.Config{
		AccessToken:  os.Getenv("META_ACCESS_TOKEN"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		SearchAPIKey: os.Getenv("GOOGLE_SEARCH_API_KEY"),
		SearchCX:     os.Getenv("GOOGLE_SEARCH_CX"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
	})
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// buildPipeline assembles the discovery pipeline from configuration. The
// returned store is nil unless persistence is configured and reachable; the
// cleanup releases the optional collaborators.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, *store.Store, func(), error) {
	if cfg.AccessToken == "" {
		return nil, nil, nil, fmt.Errorf("access token required: set --access-token, the config file, or META_ACCESS_TOKEN")
	}

	pcfg := pipeline.Config{
		Source: adsource.NewMetaAdLibrary(cfg.AccessToken, 30*time.Second),
		Verify: verify.Config{
			FetchTimeout: fetch.DefaultTimeout,
			Verbose:      cfg.Verbose,
		},
	}

	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	if cfg.GeminiAPIKey != "" {
		refiner, err := keywords.NewGeminiRefiner(ctx, cfg.GeminiAPIKey, keywords.DefaultRefineModel)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("failed to create keyword refiner: %w", err)
		}
		pcfg.Refiner = refiner
		cleanups = append(cleanups, func() { _ = refiner.Close() })
	}

	if cfg.SearchAPIKey != "" && cfg.SearchCX != "" {
		searcher, err := aggregate.NewWebSearcher(ctx, cfg.SearchAPIKey, cfg.SearchCX)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("failed to create web searcher: %w", err)
		}
		pcfg.Searcher = searcher
	}

	if cfg.DatabaseURL != "" {
		st, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: failed to connect to database: %v", err)
			log.Printf("Continuing without persistence...")
		} else if err := st.EnsureSchema(ctx); err != nil {
			log.Printf("Warning: failed to prepare database schema: %v", err)
			st.Close()
		} else {
			pcfg.Store = st
			cleanups = append(cleanups, st.Close)
		}
	}

	if cfg.UseBrowser {
		pcfg.Verify.Renderer = fetch.NewRenderer(fetch.DefaultRenderTimeout, cfg.Verbose)
	}

	return pipeline.New(pcfg), pcfg.Store, cleanup, nil
}
