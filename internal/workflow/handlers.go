package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"slidesift/internal/cluster"
	"slidesift/internal/config"
	"slidesift/internal/deps"
	"slidesift/internal/embedstore"
	"slidesift/internal/logging"
	"slidesift/internal/materialize"
	"slidesift/internal/media/ffprobe"
	"slidesift/internal/preflight"
	"slidesift/internal/services"
	"slidesift/internal/services/embedder"
	"slidesift/internal/services/ffmpeg"
	"slidesift/internal/services/tesseract"
	"slidesift/internal/services/whisperx"
	"slidesift/internal/sharpness"
	"slidesift/internal/stage"
)

// base carries what every handler shares.
type base struct {
	name   string
	cfg    *config.Config
	logger *slog.Logger
}

func (b *base) Name() string { return b.name }

func (b *base) SetLogger(logger *slog.Logger) { b.logger = logger }

func (b *base) HealthCheck(context.Context) stage.Health {
	missing := deps.Missing(deps.CheckBinaries(preflight.Requirements(b.cfg, b.name)))
	if len(missing) == 0 {
		return stage.Healthy(b.name)
	}
	names := make([]string, 0, len(missing))
	for _, m := range missing {
		names = append(names, m.Command)
	}
	return stage.Unhealthy(b.name, "missing "+strings.Join(names, ", "))
}

// probeVideo inspects the input with ffprobe. A probe that cannot run is
// logged and skipped; a probe that runs and finds no stream of the wanted
// kind fails the stage.
func (b *base) probeVideo(ctx context.Context, prober *ffprobe.Prober, video, kind string) error {
	if prober == nil {
		return nil
	}
	result, err := prober.Inspect(ctx, video)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logging.WarnWithContext(b.logger, "input probe failed", "input_probe_failed",
			logging.String("video", video),
			logging.String("command", prober.Binary()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install ffprobe (ships with ffmpeg) to validate inputs"),
			logging.String(logging.FieldImpact, "input streams not validated before "+b.name),
		)
		return nil
	}

	count := result.VideoStreamCount()
	if kind == "audio" {
		count = result.AudioStreamCount()
	}
	width, height := result.Resolution()
	b.logger.Debug("input probed",
		logging.String("video", video),
		logging.Int("video_streams", result.VideoStreamCount()),
		logging.Int("audio_streams", result.AudioStreamCount()),
		logging.String("resolution", fmt.Sprintf("%dx%d", width, height)),
		logging.Float64("duration_seconds", result.DurationSeconds()),
	)
	if count == 0 {
		return services.Wrap(services.ErrValidation, b.name, "probe input",
			fmt.Sprintf("%s has no %s stream", filepath.Base(video), kind), nil)
	}
	return nil
}

type extractHandler struct {
	base
	extractor *ffmpeg.Extractor
	prober    *ffprobe.Prober
}

func (h *extractHandler) Prepare(ctx context.Context, job *stage.Job) error {
	if err := stage.RequireFile(h.name, "video", job.Video); err != nil {
		return err
	}
	return h.probeVideo(ctx, h.prober, job.Video, "video")
}

func (h *extractHandler) Execute(ctx context.Context, job *stage.Job) error {
	result, err := h.extractor.Extract(ctx, job.Video, job.FramesDir)
	if err != nil {
		return err
	}
	job.Frames = len(result.Frames)
	return nil
}

type embedHandler struct {
	base
	generator *embedder.Generator
}

func (h *embedHandler) Prepare(_ context.Context, job *stage.Job) error {
	return stage.RequireDir(h.name, "frames directory", job.FramesDir)
}

// Execute always lets the generator write faiss output, then copies it into
// the configured backend when that is not faiss.
func (h *embedHandler) Execute(ctx context.Context, job *stage.Job) error {
	dir := job.Store.Path
	switch job.Store.Format {
	case embedstore.FormatSQLite:
		dir = filepath.Dir(job.Store.Path)
	case embedstore.FormatPostgres:
		dir = filepath.Join(job.RunDir, EmbeddingsDirName)
	}
	result, err := h.generator.Generate(ctx, job.FramesDir, dir)
	if err != nil {
		return err
	}
	job.Embeddings = result.Store.Len()

	if job.Store.Format != embedstore.FormatFaiss {
		if err := embedstore.Save(ctx, job.Store, result.Store); err != nil {
			return services.Wrap(services.ErrTransient, h.name, "persist store", fmt.Sprintf("write %s", job.Store), err)
		}
		h.logger.Info("embeddings persisted",
			logging.String("store", job.Store.String()),
			logging.Int("embedding_count", result.Store.Len()),
		)
	}
	return nil
}

type clusterHandler struct {
	base
	params  cluster.Params
	scorer  sharpness.Scorer
	workers int
	// clean removes the slides directory before materializing.
	clean bool
	store *embedstore.Store
}

func (h *clusterHandler) Prepare(ctx context.Context, job *stage.Job) error {
	store, err := embedstore.Load(ctx, job.Store)
	if err != nil {
		return services.Wrap(services.ErrNotFound, h.name, "load store", fmt.Sprintf("read %s", job.Store), err)
	}
	h.store = store
	if h.clean {
		if err := os.RemoveAll(job.SlidesDir); err != nil {
			return services.Wrap(services.ErrTransient, h.name, "prepare output", "clear slides directory", err)
		}
	}
	if err := os.MkdirAll(job.SlidesDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, h.name, "prepare output", "create slides directory", err)
	}
	return nil
}

func (h *clusterHandler) Execute(ctx context.Context, job *stage.Job) error {
	store := h.store
	h.store = nil
	if store == nil {
		return services.Wrap(services.ErrValidation, h.name, "load store", "Execute called before Prepare", nil)
	}

	result, err := cluster.New(h.params, h.logger).Cluster(ctx, store)
	if err != nil {
		return err
	}
	materializer := materialize.New(job.SlidesDir, h.scorer, h.logger, materialize.WithWorkers(h.workers))
	outcomes, err := materializer.MaterializeAll(ctx, result.Groups)
	if err != nil {
		return err
	}

	manifest := materialize.NewManifest(job.RunID, job.Store.String(), h.params, store.Len(), result, outcomes)
	path, err := materialize.WriteManifest(job.SlidesDir, manifest)
	if err != nil {
		return services.Wrap(services.ErrTransient, h.name, "write manifest", "manifest not written", err)
	}

	job.Clusters = result
	job.Outcomes = outcomes
	job.ManifestPath = path
	return nil
}

type ocrHandler struct {
	base
	converter *tesseract.Converter
}

func (h *ocrHandler) Prepare(_ context.Context, job *stage.Job) error {
	return stage.RequireDir(h.name, "slides directory", job.SlidesDir)
}

func (h *ocrHandler) Execute(ctx context.Context, job *stage.Job) error {
	result, err := h.converter.Convert(ctx, job.SlidesDir, job.PDFPath)
	if err != nil {
		return err
	}
	job.Pages = result.Pages
	return nil
}

type transcribeHandler struct {
	base
	transcriber *whisperx.Service
	prober      *ffprobe.Prober
}

func (h *transcribeHandler) Prepare(ctx context.Context, job *stage.Job) error {
	if err := stage.RequireFile(h.name, "video", job.Video); err != nil {
		return err
	}
	return h.probeVideo(ctx, h.prober, job.Video, "audio")
}

func (h *transcribeHandler) Execute(ctx context.Context, job *stage.Job) error {
	workDir := ""
	if job.RunDir != "" {
		workDir = filepath.Join(job.RunDir, AudioDirName)
	}
	result, err := h.transcriber.Transcribe(ctx, job.Video, job.TranscriptPath, workDir)
	if err != nil {
		return err
	}
	job.Language = result.Language
	return nil
}
