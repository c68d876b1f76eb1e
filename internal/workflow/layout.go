package workflow

import (
	"fmt"
	"path/filepath"
	"strings"

	"slidesift/internal/config"
	"slidesift/internal/embedstore"
	"slidesift/internal/stage"
)

// Run directory layout.
const (
	FramesDirName     = "frames"
	EmbeddingsDirName = "embeddings"
	SlidesDirName     = "slides"
	AudioDirName      = "audio"
	LockFileName      = ".slidesift.lock"
)

// Layout derives the job for video under cfg's work directory:
//
//	<work_dir>/<stem>/frames/       extracted slide_NNNN.png frames
//	<work_dir>/<stem>/embeddings/   faiss index + metadata (and embeddings.db for sqlite)
//	<work_dir>/<stem>/slides/       per-cluster folders and *_sharpest.png representatives
//	<work_dir>/<stem>/<stem>.pdf    OCR output
//	<work_dir>/<stem>/<stem>.txt    transcript
//
// With the postgres store the embeddings go to a collection named after the
// stem unless the DSN already names one.
func Layout(cfg *config.Config, video string) (stage.Job, error) {
	video = strings.TrimSpace(video)
	if video == "" {
		return stage.Job{}, fmt.Errorf("video path required")
	}
	abs, err := filepath.Abs(video)
	if err != nil {
		return stage.Job{}, fmt.Errorf("resolve video path: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	runDir := filepath.Join(cfg.Paths.WorkDir, stem)

	store, err := storeLocation(cfg, filepath.Join(runDir, EmbeddingsDirName), stem)
	if err != nil {
		return stage.Job{}, err
	}

	return stage.Job{
		Video:          abs,
		RunDir:         runDir,
		FramesDir:      filepath.Join(runDir, FramesDirName),
		Store:          store,
		SlidesDir:      filepath.Join(runDir, SlidesDirName),
		PDFPath:        filepath.Join(runDir, stem+".pdf"),
		TranscriptPath: filepath.Join(runDir, stem+".txt"),
	}, nil
}

func storeLocation(cfg *config.Config, dir, stem string) (embedstore.Location, error) {
	switch cfg.Embedding.Store {
	case config.StoreSQLite:
		return embedstore.Location{Format: embedstore.FormatSQLite, Path: filepath.Join(dir, embedstore.SQLiteFileName)}, nil
	case config.StorePostgres:
		loc, err := embedstore.ResolveLocation(cfg.Postgres.DSN, embedstore.FormatPostgres, cfg.Postgres.Table)
		if err != nil {
			return embedstore.Location{}, err
		}
		if !strings.Contains(cfg.Postgres.DSN, "#") {
			loc.Postgres.Collection = stem
		}
		return loc, nil
	default:
		return embedstore.Location{Format: embedstore.FormatFaiss, Path: dir}, nil
	}
}
