// Package embedder runs the external embedding generator and validates its output.
//
// The generator is an arbitrary command that receives the images directory, the
// destination directory, and the model name as trailing arguments, and must write
// a faiss flat index plus metadata.json into the destination.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"slidesift/internal/embedstore"
	"slidesift/internal/fileutil"
	"slidesift/internal/logging"
	"slidesift/internal/services"
)

// DefaultModel is passed to the generator when none is configured.
const DefaultModel = "vit_large_patch16_224"

const stageName = "embedding"

// CommandRunner executes a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Generator invokes the configured embedding command.
type Generator struct {
	command       []string
	model         string
	logger        *slog.Logger
	commandRunner CommandRunner
}

// Result describes a completed embedding run.
type Result struct {
	Dir    string
	Images []string
	Store  *embedstore.Store
}

// NewGenerator constructs a generator from an argv-form command.
func NewGenerator(command []string, model string, logger *slog.Logger) *Generator {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		command: append([]string(nil), command...),
		model:   model,
		logger:  logging.NewComponentLogger(logger, "embedder"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (g *Generator) WithCommandRunner(runner CommandRunner) {
	g.commandRunner = runner
}

// Model returns the model name passed to the generator.
func (g *Generator) Model() string { return g.model }

// Generate embeds every PNG in imagesDir and loads the faiss output written to destDir.
func (g *Generator) Generate(ctx context.Context, imagesDir, destDir string) (Result, error) {
	result := Result{Dir: destDir}
	if len(g.command) == 0 {
		return result, services.Wrap(services.ErrConfiguration, stageName, "resolve command", "embedding command not configured", nil)
	}

	images, err := ListImages(imagesDir)
	if err != nil {
		return result, services.Wrap(services.ErrNotFound, stageName, "list images", fmt.Sprintf("read %s", imagesDir), err)
	}
	if len(images) == 0 {
		return result, services.Wrap(services.ErrEmptyInput, stageName, "list images", fmt.Sprintf("no PNG images found in %s", imagesDir), nil)
	}
	result.Images = images

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrTransient, stageName, "prepare output", "create store directory", err)
	}

	started := time.Now()
	args := append(slices.Clone(g.command[1:]), imagesDir, destDir, g.model)
	g.logger.Info("generating embeddings",
		logging.String(logging.FieldEventType, "embed_start"),
		logging.Int("frame_count", len(images)),
		logging.String("model", g.model),
		logging.String("images_dir", imagesDir),
	)
	g.logger.Debug("embedding command", logging.String("command", g.command[0]), logging.Any("args", args))

	if output, err := g.run(ctx, g.command[0], args...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return result, services.Wrap(services.ErrMissingDependency, stageName, "run generator", fmt.Sprintf("%s not available", g.command[0]), err)
		}
		return result, services.Wrap(services.ErrExternalTool, stageName, "run generator",
			strings.TrimSpace(string(output)), err)
	}

	store, err := embedstore.LoadFaiss(destDir)
	if err != nil {
		return result, services.Wrap(services.ErrValidation, stageName, "load output", "generator output is not a valid embedding store", err)
	}
	if store.Len() == 0 {
		return result, services.Wrap(services.ErrEmptyInput, stageName, "load output", "generator produced no embeddings", nil)
	}
	result.Store = store

	if skipped := len(images) - store.Len(); skipped > 0 {
		logging.WarnWithContext(g.logger, "generator skipped some images", "embed_partial",
			logging.Int("frame_count", len(images)),
			logging.Int("embedding_count", store.Len()),
			logging.String(logging.FieldImpact, "skipped frames are excluded from clustering"),
		)
	}
	g.logger.Info("embeddings generated",
		logging.String(logging.FieldEventType, "embed_complete"),
		logging.Int("embedding_count", store.Len()),
		logging.Int("dimension", store.Dim()),
		logging.String("store_dir", destDir),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return result, nil
}

func (g *Generator) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if g.commandRunner != nil {
		return g.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// ListImages returns the sorted *.png files directly inside dir.
func ListImages(dir string) ([]string, error) {
	return fileutil.ListByExt(dir, ".png")
}
