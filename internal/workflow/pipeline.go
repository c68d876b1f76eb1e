package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"slidesift/internal/cluster"
	"slidesift/internal/config"
	"slidesift/internal/deps"
	"slidesift/internal/logging"
	"slidesift/internal/media/ffprobe"
	"slidesift/internal/preflight"
	"slidesift/internal/services"
	"slidesift/internal/services/embedder"
	"slidesift/internal/services/ffmpeg"
	"slidesift/internal/services/tesseract"
	"slidesift/internal/services/whisperx"
	"slidesift/internal/sharpness"
	"slidesift/internal/stage"
	"slidesift/internal/stageexec"
)

// ErrRunLocked is returned when another run holds the work directory lock.
var ErrRunLocked = errors.New("another slidesift run holds the work directory lock")

// Pipeline drives the stages for one configuration.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger

	extractor   *ffmpeg.Extractor
	generator   *embedder.Generator
	converter   *tesseract.Converter
	transcriber *whisperx.Service
	prober      *ffprobe.Prober
	scorer      sharpness.Scorer
	cleanSlides bool

	handlers map[string]stage.Handler
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithExtractor replaces the frame extractor.
func WithExtractor(e *ffmpeg.Extractor) Option { return func(p *Pipeline) { p.extractor = e } }

// WithGenerator replaces the embedding generator.
func WithGenerator(g *embedder.Generator) Option { return func(p *Pipeline) { p.generator = g } }

// WithConverter replaces the OCR converter.
func WithConverter(c *tesseract.Converter) Option { return func(p *Pipeline) { p.converter = c } }

// WithTranscriber replaces the WhisperX service.
func WithTranscriber(s *whisperx.Service) Option { return func(p *Pipeline) { p.transcriber = s } }

// WithProber replaces the ffprobe input inspector.
func WithProber(pr *ffprobe.Prober) Option { return func(p *Pipeline) { p.prober = pr } }

// WithScorer replaces the sharpness scorer.
func WithScorer(s sharpness.Scorer) Option { return func(p *Pipeline) { p.scorer = s } }

// WithCleanSlides controls whether the clustering stage clears the slides
// directory before writing. Full runs clear it; the default is true.
func WithCleanSlides(clean bool) Option { return func(p *Pipeline) { p.cleanSlides = clean } }

// New builds a pipeline whose collaborators come from cfg unless overridden.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{cfg: cfg, logger: logging.NewComponentLogger(logger, "pipeline"), cleanSlides: true}
	for _, opt := range opts {
		opt(p)
	}
	if p.extractor == nil {
		p.extractor = ffmpeg.NewExtractor(cfg.FFmpegBinary(), cfg.Extraction.Threshold, logger)
	}
	if p.generator == nil {
		p.generator = embedder.NewGenerator(cfg.EmbeddingCommand(), cfg.Embedding.Model, logger)
	}
	if p.converter == nil {
		p.converter = tesseract.NewConverter(cfg.TesseractBinary(), cfg.OCR.Language, logger)
	}
	if p.transcriber == nil {
		p.transcriber = whisperx.NewService(whisperx.Config{
			Model:       cfg.Transcription.Model,
			Language:    cfg.Transcription.Language,
			CUDAEnabled: cfg.Transcription.CUDAEnabled,
			VADMethod:   cfg.Transcription.VADMethod,
			HFToken:     cfg.Transcription.HFToken,
		}, cfg.FFmpegBinary(), logger)
	}
	if p.prober == nil {
		p.prober = ffprobe.NewProber(ffprobe.BinaryFor(cfg.FFmpegBinary()))
	}
	if p.scorer == nil {
		p.scorer = sharpness.Laplacian
	}

	p.handlers = map[string]stage.Handler{
		stage.Extraction: &extractHandler{base: p.base(stage.Extraction), extractor: p.extractor, prober: p.prober},
		stage.Embedding:  &embedHandler{base: p.base(stage.Embedding), generator: p.generator},
		stage.Clustering: &clusterHandler{
			base:    p.base(stage.Clustering),
			params:  ClusterParams(cfg),
			scorer:  p.scorer,
			workers: cfg.Clustering.Workers,
			clean:   p.cleanSlides,
		},
		stage.OCR:           &ocrHandler{base: p.base(stage.OCR), converter: p.converter},
		stage.Transcription: &transcribeHandler{base: p.base(stage.Transcription), transcriber: p.transcriber, prober: p.prober},
	}
	return p
}

func (p *Pipeline) base(name string) base {
	return base{name: name, cfg: p.cfg, logger: p.logger}
}

// ClusterParams maps the [clustering] section onto cluster.Params.
func ClusterParams(cfg *config.Config) cluster.Params {
	return cluster.Params{
		Eps:            cfg.Clustering.Eps,
		RefineEps:      cfg.Clustering.RefineEps,
		MinPts:         cfg.Clustering.MinSamples,
		MaxClusterSize: cfg.Clustering.MaxClusterSize,
		Workers:        cfg.Clustering.Workers,
	}
}

// Stages returns the stage names a full run executes, in order.
func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(stage.Order))
	for _, name := range stage.Order {
		if name == stage.Transcription && !p.cfg.Transcription.Enabled {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Handler returns the handler registered for a stage name.
func (p *Pipeline) Handler(name string) (stage.Handler, bool) {
	h, ok := p.handlers[name]
	return h, ok
}

// HealthChecks reports the readiness of every stage in a full run.
func (p *Pipeline) HealthChecks(ctx context.Context) []stage.Health {
	var health []stage.Health
	for _, name := range p.Stages() {
		health = append(health, p.handlers[name].HealthCheck(ctx))
	}
	return health
}

// Run executes every stage for video and returns the completed job.
func (p *Pipeline) Run(ctx context.Context, video string) (*stage.Job, error) {
	layout, err := Layout(p.cfg, video)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "layout run", err.Error(), nil)
	}
	job := &layout

	if err := os.MkdirAll(p.cfg.Paths.WorkDir, 0o755); err != nil {
		return job, services.Wrap(services.ErrConfiguration, "pipeline", "prepare work dir", "create work directory", err)
	}
	lock := flock.New(filepath.Join(p.cfg.Paths.WorkDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return job, services.Wrap(services.ErrTransient, "pipeline", "acquire lock", "lock work directory", err)
	}
	if !locked {
		return job, services.Wrap(services.ErrTransient, "pipeline", "acquire lock", p.cfg.Paths.WorkDir, ErrRunLocked)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release work directory lock", logging.Error(err))
		}
	}()

	job.RunID = uuid.NewString()
	ctx = services.WithRunID(ctx, job.RunID)
	logger := logging.WithContext(ctx, p.logger)

	stages := p.Stages()
	if err := p.runPreflight(ctx, logger, stages); err != nil {
		return job, err
	}
	if err := os.MkdirAll(job.RunDir, 0o755); err != nil {
		return job, services.Wrap(services.ErrTransient, "pipeline", "prepare run dir", "create run directory", err)
	}

	started := time.Now()
	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("video", job.Video),
		logging.String("run_dir", job.RunDir),
		logging.String("store", job.Store.String()),
		logging.Any("stages", stages),
	)
	if !p.cfg.Transcription.Enabled {
		logger.Info("transcription skipped", logging.Args(logging.DecisionAttrs("transcription", "skipped", "disabled in config")...)...)
	}
	for _, name := range stages {
		if err := stageexec.Run(ctx, stageexec.Options{Logger: p.logger, Handler: p.handlers[name], Job: job}); err != nil {
			logging.ErrorWithContext(logger, "pipeline halted", "pipeline_failure",
				logging.String("failed_stage", name),
				logging.Error(err),
			)
			return job, err
		}
	}

	logger.Info("pipeline complete",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Int("frame_count", job.Frames),
		logging.Int("embedding_count", job.Embeddings),
		logging.Int("cluster_count", len(job.Clusters.Groups)),
		logging.Int("noise_count", len(job.Clusters.Noise)),
		logging.Int("page_count", job.Pages),
		logging.String("pdf_path", job.PDFPath),
		logging.String("transcript_path", job.TranscriptPath),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return job, nil
}

// RunStage executes a single stage against a caller-built job after checking
// that stage's binaries.
func (p *Pipeline) RunStage(ctx context.Context, name string, job *stage.Job) error {
	handler, ok := p.handlers[name]
	if !ok {
		return services.Wrap(services.ErrValidation, "pipeline", "select stage", fmt.Sprintf("unknown stage %q", name), nil)
	}
	if err := deps.Require(preflight.Requirements(p.cfg, name)); err != nil {
		return err
	}
	if job.RunID == "" {
		job.RunID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, job.RunID)
	return stageexec.Run(ctx, stageexec.Options{Logger: p.logger, Handler: handler, Job: job})
}

// runPreflight checks binaries for the stages and the environment, logging each check.
func (p *Pipeline) runPreflight(ctx context.Context, logger *slog.Logger, stages []string) error {
	if err := deps.Require(preflight.Requirements(p.cfg, stages...)); err != nil {
		return err
	}
	var failures []string
	for _, r := range preflight.RunAll(ctx, p.cfg) {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and rerun"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "preflight",
			fmt.Sprintf("preflight checks failed: %v", failures), nil)
	}
	return nil
}
