package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"slidesift/internal/config"
	"slidesift/internal/embedstore"
	"slidesift/internal/workflow"
)

func expandArg(what, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%s path is required", what)
	}
	path, err := config.ExpandPath(raw)
	if err != nil {
		return "", fmt.Errorf("resolve %s path: %w", what, err)
	}
	return path, nil
}

func isPostgresDSN(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// resolveStore turns a store argument into a location. Paths are expanded;
// Postgres DSNs are passed through. fallback picks the layout for a directory
// that holds no store yet.
func resolveStore(cfg *config.Config, raw string, fallback embedstore.Format) (embedstore.Location, error) {
	raw = strings.TrimSpace(raw)
	if !isPostgresDSN(raw) {
		expanded, err := expandArg("store", raw)
		if err != nil {
			return embedstore.Location{}, err
		}
		raw = expanded
	}
	return embedstore.ResolveLocation(raw, fallback, cfg.Postgres.Table)
}

// defaultStoreArg is where embed writes when no store argument is given: the
// configured DSN for postgres, otherwise an embeddings directory beside the frames.
func defaultStoreArg(cfg *config.Config, framesDir string) string {
	if cfg.Embedding.Store == config.StorePostgres && cfg.Postgres.DSN != "" {
		return cfg.Postgres.DSN
	}
	return filepath.Join(filepath.Dir(framesDir), workflow.EmbeddingsDirName)
}
