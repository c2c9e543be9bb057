package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prodsheet/internal/extract"
	"github.com/sells-group/prodsheet/internal/pipeline"
	"github.com/sells-group/prodsheet/internal/store"
	"github.com/sells-group/prodsheet/pkg/anthropic"
)

// openStore builds the configured store backend. The caller owns the
// returned store and must Close it on shutdown.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// buildParser wires the extraction client into an ingestion parser.
func buildParser() (*pipeline.Parser, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic.key is not configured")
	}

	client := anthropic.NewClient(cfg.Anthropic.Key)
	extractor := extract.New(client, extract.Config{
		Model:             cfg.Anthropic.Model,
		MaxTokens:         cfg.Anthropic.MaxTokens,
		RequestsPerMinute: cfg.Anthropic.RequestsPerMinute,
	})
	return pipeline.NewParser(extractor), nil
}
