package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Extraction contains configuration for scene-change frame extraction.
type Extraction struct {
	// Threshold is the ffmpeg scene score above which a frame is kept.
	// Lower values produce more frames.
	Threshold    float64 `toml:"threshold"`
	FFmpegBinary string  `toml:"ffmpeg_binary"`
}

// Embedding contains configuration for the external embedding generator.
type Embedding struct {
	// Command is split on whitespace; the images directory, destination
	// directory, and model are appended as arguments.
	Command string `toml:"command"`
	Model   string `toml:"model"`
	// Store selects the persisted layout consumed by clustering:
	// "faiss" (embeddings.index + metadata.json), "sqlite", or "postgres".
	Store string `toml:"store"`
}

// Clustering contains the density clustering parameters.
type Clustering struct {
	Eps            float64 `toml:"eps"`
	RefineEps      float64 `toml:"refine_eps"`
	MinSamples     int     `toml:"min_samples"`
	MaxClusterSize int     `toml:"max_cluster_size"`
	Workers        int     `toml:"workers"`
}

// OCR contains configuration for the tesseract PDF conversion.
type OCR struct {
	TesseractBinary string `toml:"tesseract_binary"`
	Language        string `toml:"language"`
}

// Transcription contains configuration for WhisperX transcription.
type Transcription struct {
	Enabled     bool   `toml:"enabled"`
	Model       string `toml:"model"`
	Language    string `toml:"language"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
}

// Postgres contains connection settings for the pgvector embedding store.
type Postgres struct {
	DSN   string `toml:"dsn"`
	Table string `toml:"table"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for slidesift.
//
// Configuration sections by subsystem:
//   - Paths: work directory for pipeline runs and log directory
//   - Extraction: ffmpeg scene-change threshold
//   - Embedding: external embedding generator and store backend
//   - Clustering: DBSCAN radius, refinement radius, and size threshold
//   - OCR: tesseract binary and recognition language
//   - Transcription: WhisperX model, pinned language, and device
//   - Postgres: optional pgvector store
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Extraction    Extraction    `toml:"extraction"`
	Embedding     Embedding     `toml:"embedding"`
	Clustering    Clustering    `toml:"clustering"`
	OCR           OCR           `toml:"ocr"`
	Transcription Transcription `toml:"transcription"`
	Postgres      Postgres      `toml:"postgres"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slidesift/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("slidesift.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for extraction and audio decoding.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Extraction.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// TesseractBinary returns the tesseract executable used for OCR.
func (c *Config) TesseractBinary() string {
	if bin := strings.TrimSpace(c.OCR.TesseractBinary); bin != "" {
		return bin
	}
	return defaultTesseractBinary
}

// EmbeddingCommand returns the embedding generator command split into argv form.
func (c *Config) EmbeddingCommand() []string {
	fields := strings.Fields(c.Embedding.Command)
	if len(fields) == 0 {
		return strings.Fields(defaultEmbeddingCommand)
	}
	return fields
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
