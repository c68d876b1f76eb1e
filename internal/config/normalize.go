package config

import (
	"fmt"
	"os"
	"strings"

	"slidesift/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEmbedding()
	c.normalizeClustering()
	c.normalizeOCR()
	c.normalizeTranscription()
	c.normalizePostgres()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEmbedding() {
	c.Embedding.Command = strings.TrimSpace(c.Embedding.Command)
	if c.Embedding.Command == "" {
		c.Embedding.Command = defaultEmbeddingCommand
	}
	c.Embedding.Model = strings.TrimSpace(c.Embedding.Model)
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultEmbeddingModel
	}
	c.Embedding.Store = strings.ToLower(strings.TrimSpace(c.Embedding.Store))
	if c.Embedding.Store == "" {
		c.Embedding.Store = defaultEmbeddingStore
	}
}

func (c *Config) normalizeClustering() {
	if c.Clustering.Workers <= 0 {
		c.Clustering.Workers = defaultClusterWorkers
	}
}

// normalizeOCR rewrites the "+"-joined language list into deduplicated
// tesseract traineddata names.
func (c *Config) normalizeOCR() {
	c.OCR.TesseractBinary = strings.TrimSpace(c.OCR.TesseractBinary)
	c.OCR.Language = language.ToTesseract(c.OCR.Language)
	if c.OCR.Language == "" {
		c.OCR.Language = defaultOCRLanguage
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultTranscriptionVAD
	}
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizePostgres() {
	c.Postgres.DSN = strings.TrimSpace(c.Postgres.DSN)
	if value, ok := os.LookupEnv("SLIDESIFT_PG_DSN"); ok && strings.TrimSpace(value) != "" {
		c.Postgres.DSN = strings.TrimSpace(value)
	}
	c.Postgres.Table = strings.TrimSpace(c.Postgres.Table)
	if c.Postgres.Table == "" {
		c.Postgres.Table = defaultPostgresTable
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json", "color":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
