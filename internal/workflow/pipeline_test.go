package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"slidesift/internal/config"
	"slidesift/internal/embedstore"
	"slidesift/internal/materialize"
	"slidesift/internal/media/ffprobe"
	"slidesift/internal/services"
	"slidesift/internal/services/embedder"
	"slidesift/internal/services/ffmpeg"
	"slidesift/internal/services/tesseract"
	"slidesift/internal/services/whisperx"
	"slidesift/internal/stage"
	"slidesift/internal/testsupport"
)

// frameVectors assigns slides 1-3 to one direction, 4-5 to another, and 6 to a third.
var frameVectors = map[string][]float32{
	"slide_0001.png": {1, 0, 0},
	"slide_0002.png": {1, 0.01, 0},
	"slide_0003.png": {1, 0, 0.01},
	"slide_0004.png": {0, 1, 0},
	"slide_0005.png": {0.01, 1, 0},
	"slide_0006.png": {0, 0, 1},
}

type fakes struct {
	frames    int
	calls     []string
	ocrImages []string
}

func (f *fakes) extractor(t *testing.T) *ffmpeg.Extractor {
	e := ffmpeg.NewExtractor("ffmpeg", 0.25, nil)
	e.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		f.calls = append(f.calls, stage.Extraction)
		pattern := args[len(args)-1]
		for i := 1; i <= f.frames; i++ {
			fill := testsupport.Flat(uint8(40 * i))
			if i == 2 {
				fill = testsupport.Checker(2)
			}
			testsupport.WritePNG(t, fmt.Sprintf(pattern, i), 8, 8, fill)
		}
		return nil, nil
	})
	return e
}

func (f *fakes) generator() *embedder.Generator {
	g := embedder.NewGenerator([]string{"uvx", "slidesift-embed"}, "", nil)
	g.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		f.calls = append(f.calls, stage.Embedding)
		n := len(args)
		images, err := embedder.ListImages(args[n-3])
		if err != nil {
			return nil, err
		}
		store := &embedstore.Store{}
		for _, img := range images {
			store.Append(img, frameVectors[filepath.Base(img)])
		}
		return nil, embedstore.SaveFaiss(args[n-2], store)
	})
	return g
}

func (f *fakes) converter(t *testing.T) *tesseract.Converter {
	c := tesseract.NewConverter("tesseract", "rus", nil)
	c.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		f.calls = append(f.calls, stage.OCR)
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		f.ocrImages = strings.Fields(string(data))
		testsupport.WritePDF(t, args[1]+".pdf", len(f.ocrImages))
		return nil, nil
	})
	return c
}

func (f *fakes) transcriber() *whisperx.Service {
	s := whisperx.NewService(whisperx.Config{}, "ffmpeg", nil)
	s.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name == "ffmpeg" {
			return os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
		}
		f.calls = append(f.calls, stage.Transcription)
		outDir := args[slices.Index(args, "--output_dir")+1]
		source := args[slices.Index(args, "whisperx")+1]
		base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		return os.WriteFile(filepath.Join(outDir, base+".json"),
			[]byte(`{"language":"ru","segments":[{"text":"первый слайд"},{"text":"второй слайд"}]}`), 0o644)
	})
	return s
}

func (f *fakes) options(t *testing.T) []Option {
	return []Option{
		WithExtractor(f.extractor(t)),
		WithGenerator(f.generator()),
		WithConverter(f.converter(t)),
		WithTranscriber(f.transcriber()),
	}
}

func newTestConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfg
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lecture.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPipelineRunEndToEnd(t *testing.T) {
	cfg := newTestConfig(t)
	f := &fakes{frames: 6}
	pipeline := New(cfg, nil, f.options(t)...)

	job, err := pipeline.Run(context.Background(), writeVideo(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{stage.Extraction, stage.Embedding, stage.OCR, stage.Transcription}
	if !slices.Equal(f.calls, want) {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
	if job.RunID == "" {
		t.Fatal("expected run id")
	}
	if job.Frames != 6 || job.Embeddings != 6 {
		t.Fatalf("frames=%d embeddings=%d", job.Frames, job.Embeddings)
	}
	if len(job.Clusters.Groups) != 2 || len(job.Clusters.Noise) != 1 {
		t.Fatalf("unexpected clustering %+v", job.Clusters)
	}
	if job.Pages != 2 || job.Language != "ru" {
		t.Fatalf("pages=%d language=%q", job.Pages, job.Language)
	}

	wantSlides := []string{
		filepath.Join(job.SlidesDir, "slide_0001_sharpest.png"),
		filepath.Join(job.SlidesDir, "slide_0004_sharpest.png"),
	}
	if !slices.Equal(f.ocrImages, wantSlides) {
		t.Fatalf("ocr images = %v, want %v", f.ocrImages, wantSlides)
	}

	// slide_0002 carries the checker pattern, so it represents the first cluster.
	rep, err := os.ReadFile(wantSlides[0])
	if err != nil {
		t.Fatal(err)
	}
	sharp, err := os.ReadFile(filepath.Join(job.FramesDir, "slide_0002.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(rep) != string(sharp) {
		t.Fatal("representative should be a copy of slide_0002.png")
	}

	if _, err := os.Stat(filepath.Join(job.SlidesDir, materialize.ManifestFileName)); err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	transcript, err := os.ReadFile(job.TranscriptPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(transcript) != "первый слайд второй слайд" {
		t.Fatalf("transcript = %q", transcript)
	}
}

func TestPipelineSkipsDisabledTranscription(t *testing.T) {
	cfg := newTestConfig(t, testsupport.WithoutTranscription())
	f := &fakes{frames: 6}
	pipeline := New(cfg, nil, f.options(t)...)

	if slices.Contains(pipeline.Stages(), stage.Transcription) {
		t.Fatalf("stages = %v", pipeline.Stages())
	}
	job, err := pipeline.Run(context.Background(), writeVideo(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(job.TranscriptPath); !os.IsNotExist(err) {
		t.Fatalf("transcript should not exist, stat err = %v", err)
	}
}

func TestPipelineHaltsOnFirstFailure(t *testing.T) {
	cfg := newTestConfig(t)
	f := &fakes{frames: 0}
	pipeline := New(cfg, nil, f.options(t)...)

	_, err := pipeline.Run(context.Background(), writeVideo(t))
	if !errors.Is(err, services.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if !slices.Equal(f.calls, []string{stage.Extraction}) {
		t.Fatalf("later stages should not run: %v", f.calls)
	}
}

func TestPipelineSQLiteStore(t *testing.T) {
	cfg := newTestConfig(t, testsupport.WithStore(config.StoreSQLite))
	f := &fakes{frames: 6}
	pipeline := New(cfg, nil, f.options(t)...)

	job, err := pipeline.Run(context.Background(), writeVideo(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Store.Format != embedstore.FormatSQLite {
		t.Fatalf("store = %s", job.Store)
	}
	store, err := embedstore.LoadSQLite(context.Background(), job.Store.Path)
	if err != nil {
		t.Fatalf("LoadSQLite: %v", err)
	}
	if store.Len() != 6 {
		t.Fatalf("sqlite rows = %d", store.Len())
	}
}

func TestPipelineRefusesConcurrentRun(t *testing.T) {
	cfg := newTestConfig(t)
	lock := flock.New(filepath.Join(cfg.Paths.WorkDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-lock: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()

	f := &fakes{frames: 6}
	_, err = New(cfg, nil, f.options(t)...).Run(context.Background(), writeVideo(t))
	if !errors.Is(err, ErrRunLocked) {
		t.Fatalf("expected ErrRunLocked, got %v", err)
	}
	if len(f.calls) != 0 {
		t.Fatalf("no stage should run: %v", f.calls)
	}
}

func TestPipelineMissingBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEmptyPath())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	f := &fakes{frames: 6}
	_, err := New(cfg, nil, f.options(t)...).Run(context.Background(), writeVideo(t))
	if !errors.Is(err, services.ErrMissingDependency) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}
	if services.ExitCode(err) != services.ExitMissingDependency {
		t.Fatalf("exit code = %d", services.ExitCode(err))
	}
}

func TestRunStageClustersExistingStore(t *testing.T) {
	cfg := newTestConfig(t)
	storeDir := t.TempDir()
	framesDir := t.TempDir()
	store := &embedstore.Store{}
	for name, vec := range frameVectors {
		path := filepath.Join(framesDir, name)
		testsupport.WritePNG(t, path, 4, 4, testsupport.Flat(10))
		store.Append(path, vec)
	}
	if err := embedstore.SaveFaiss(storeDir, store); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(t.TempDir(), "out")
	job := &stage.Job{
		Store:     embedstore.Location{Format: embedstore.FormatFaiss, Path: storeDir},
		SlidesDir: outDir,
	}
	if err := New(cfg, nil).RunStage(context.Background(), stage.Clustering, job); err != nil {
		t.Fatalf("RunStage: %v", err)
	}
	if len(job.Outcomes) != 2 {
		t.Fatalf("outcomes = %d", len(job.Outcomes))
	}
	if job.RunID == "" {
		t.Fatal("expected run id")
	}

	err := New(cfg, nil).RunStage(context.Background(), "bogus", job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLayout(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = "/work"

	job, err := Layout(&cfg, "/videos/talk.final.mp4")
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if job.RunDir != "/work/talk.final" || job.FramesDir != "/work/talk.final/frames" {
		t.Fatalf("unexpected dirs %+v", job)
	}
	if job.PDFPath != "/work/talk.final/talk.final.pdf" || job.TranscriptPath != "/work/talk.final/talk.final.txt" {
		t.Fatalf("unexpected outputs %+v", job)
	}
	if job.Store.Format != embedstore.FormatFaiss || job.Store.Path != "/work/talk.final/embeddings" {
		t.Fatalf("unexpected store %s", job.Store)
	}

	cfg.Embedding.Store = config.StorePostgres
	cfg.Postgres.DSN = "postgres://u@localhost/db"
	job, err = Layout(&cfg, "/videos/talk.mp4")
	if err != nil {
		t.Fatalf("Layout postgres: %v", err)
	}
	if job.Store.Postgres.Collection != "talk" || job.Store.Postgres.DSN != "postgres://u@localhost/db" {
		t.Fatalf("unexpected postgres location %+v", job.Store.Postgres)
	}

	cfg.Postgres.DSN = "postgres://u@localhost/db#shared"
	job, err = Layout(&cfg, "/videos/talk.mp4")
	if err != nil {
		t.Fatalf("Layout postgres fragment: %v", err)
	}
	if job.Store.Postgres.Collection != "shared" {
		t.Fatalf("collection = %q", job.Store.Postgres.Collection)
	}

	if _, err := Layout(&cfg, " "); err == nil {
		t.Fatal("expected error for empty video")
	}
}

func TestHealthChecks(t *testing.T) {
	cfg := newTestConfig(t)
	health := New(cfg, nil).HealthChecks(context.Background())
	if len(health) != len(stage.Order) {
		t.Fatalf("health = %d entries", len(health))
	}
	for _, h := range health {
		if !h.Ready {
			t.Fatalf("stage %s not ready: %s", h.Name, h.Detail)
		}
	}
}

func fakeProber(streams string) *ffprobe.Prober {
	p := ffprobe.NewProber("ffprobe")
	p.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`{"streams":[` + streams + `],"format":{"duration":"60"}}`), nil
	})
	return p
}

func TestPipelineRejectsInputWithoutVideoStream(t *testing.T) {
	cfg := newTestConfig(t)
	f := &fakes{frames: 6}
	opts := append(f.options(t), WithProber(fakeProber(`{"codec_type":"audio"}`)))

	_, err := New(cfg, nil, opts...).Run(context.Background(), writeVideo(t))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "no video stream") {
		t.Fatalf("unexpected message %v", err)
	}
	if len(f.calls) != 0 {
		t.Fatalf("extraction should not run: %v", f.calls)
	}
}

func TestPipelineRejectsTranscriptionWithoutAudio(t *testing.T) {
	cfg := newTestConfig(t)
	f := &fakes{frames: 6}
	opts := append(f.options(t), WithProber(fakeProber(`{"codec_type":"video","width":1280,"height":720}`)))

	job, err := New(cfg, nil, opts...).Run(context.Background(), writeVideo(t))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	want := []string{stage.Extraction, stage.Embedding, stage.OCR}
	if !slices.Equal(f.calls, want) {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
	if _, statErr := os.Stat(job.PDFPath); statErr != nil {
		t.Fatalf("earlier outputs should remain: %v", statErr)
	}
}
