package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	if err := c.validateClustering(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.Threshold <= 0 || c.Extraction.Threshold >= 1 {
		return errors.New("extraction.threshold must be between 0 and 1 (exclusive)")
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	switch c.Embedding.Store {
	case StoreFaiss, StoreSQLite:
	case StorePostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return errors.New("postgres.dsn must be set when embedding.store is postgres (or set SLIDESIFT_PG_DSN)")
		}
	default:
		return fmt.Errorf("embedding.store: unsupported value %q (want faiss, sqlite, or postgres)", c.Embedding.Store)
	}
	return nil
}

func (c *Config) validateClustering() error {
	cfg := c.Clustering
	if cfg.Eps <= 0 {
		return errors.New("clustering.eps must be positive")
	}
	if cfg.RefineEps <= 0 {
		return errors.New("clustering.refine_eps must be positive")
	}
	if cfg.RefineEps >= cfg.Eps {
		return errors.New("clustering.refine_eps must be smaller than clustering.eps")
	}
	if err := ensurePositiveMap(map[string]int{
		"clustering.min_samples":      cfg.MinSamples,
		"clustering.max_cluster_size": cfg.MaxClusterSize,
		"clustering.workers":          cfg.Workers,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if !c.Transcription.Enabled {
		return nil
	}
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.vad_method: unsupported value %q", c.Transcription.VADMethod)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
