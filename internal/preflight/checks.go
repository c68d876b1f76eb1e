package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"slidesift/internal/config"
	"slidesift/internal/deps"
	"slidesift/internal/embedstore"
	"slidesift/internal/media/ffprobe"
	"slidesift/internal/stage"
)

// Install hints surfaced with missing-dependency errors.
const (
	hintFFmpeg    = "sudo apt-get install ffmpeg"
	hintTesseract = "sudo apt-get install tesseract-ocr (plus tesseract-ocr-<lang> for each OCR language)"
	hintUV        = "install uv from https://docs.astral.sh/uv/"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckPostgres verifies that the configured pgvector database is reachable.
func CheckPostgres(ctx context.Context, cfg *config.Config) Result {
	const name = "PostgreSQL"
	if strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return Result{Name: name, Detail: "missing dsn"}
	}
	loc, err := embedstore.ResolveLocation(cfg.Postgres.DSN, embedstore.FormatPostgres, cfg.Postgres.Table)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := embedstore.PingPostgres(checkCtx, loc.Postgres); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (table %s)", loc.Postgres.Table)}
}

// Requirements lists the external binaries the given stages need. With no
// stages, every stage enabled in cfg is included. Commands shared by several
// stages are listed once.
func Requirements(cfg *config.Config, stages ...string) []deps.Requirement {
	if len(stages) == 0 {
		stages = stage.Order
	}
	var requirements []deps.Requirement
	seen := map[string]struct{}{}
	add := func(req deps.Requirement) {
		if _, ok := seen[req.Command]; ok {
			return
		}
		seen[req.Command] = struct{}{}
		requirements = append(requirements, req)
	}

	for _, name := range stages {
		switch name {
		case stage.Extraction:
			add(deps.Requirement{
				Name:        "FFmpeg",
				Command:     cfg.FFmpegBinary(),
				Description: "Required for scene-change frame extraction",
				Hint:        hintFFmpeg,
			})
			add(probeRequirement(cfg))
		case stage.Embedding:
			command := ""
			if argv := cfg.EmbeddingCommand(); len(argv) > 0 {
				command = argv[0]
			}
			add(deps.Requirement{
				Name:        "Embedding generator",
				Command:     command,
				Description: "Required to embed extracted frames",
				Hint:        hintUV,
			})
		case stage.OCR:
			add(deps.Requirement{
				Name:        "Tesseract",
				Command:     cfg.TesseractBinary(),
				Description: "Required for the OCR PDF",
				Hint:        hintTesseract,
			})
		case stage.Transcription:
			if !cfg.Transcription.Enabled {
				continue
			}
			add(deps.Requirement{
				Name:        "FFmpeg",
				Command:     cfg.FFmpegBinary(),
				Description: "Required to decode audio for transcription",
				Hint:        hintFFmpeg,
			})
			add(probeRequirement(cfg))
			add(deps.Requirement{
				Name:        "uvx",
				Command:     "uvx",
				Description: "Required for WhisperX-driven transcription",
				Hint:        hintUV,
			})
		}
	}
	return requirements
}

func probeRequirement(cfg *config.Config) deps.Requirement {
	return deps.Requirement{
		Name:        "FFprobe",
		Command:     ffprobe.BinaryFor(cfg.FFmpegBinary()),
		Description: "Validates input streams before extraction and transcription",
		Hint:        hintFFmpeg,
		Optional:    true,
	}
}

// CheckSystemDeps evaluates every system-level dependency for the given config.
// Both the pipeline and the CLI status command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(Requirements(cfg))
}
