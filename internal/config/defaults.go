package config

const (
	defaultWorkDir             = "~/.local/share/slidesift/runs"
	defaultLogDir              = "~/.local/share/slidesift/logs"
	defaultSceneThreshold      = 0.25
	defaultFFmpegBinary        = "ffmpeg"
	defaultTesseractBinary     = "tesseract"
	defaultEmbeddingCommand    = "uvx slidesift-embed"
	defaultEmbeddingModel      = "vit_large_patch16_224"
	defaultEmbeddingStore      = StoreFaiss
	defaultEps                 = 0.3
	defaultRefineEps           = 0.2
	defaultMinSamples          = 2
	defaultMaxClusterSize      = 50
	defaultClusterWorkers      = 4
	defaultOCRLanguage         = "eng"
	defaultTranscriptionModel  = "large-v3-turbo"
	defaultTranscriptionLang   = "ru"
	defaultTranscriptionVAD    = "silero"
	defaultPostgresTable       = "frame_embeddings"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultTranscriptionEnable = true
)

// Embedding store backends.
const (
	StoreFaiss    = "faiss"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Extraction: Extraction{
			Threshold:    defaultSceneThreshold,
			FFmpegBinary: defaultFFmpegBinary,
		},
		Embedding: Embedding{
			Command: defaultEmbeddingCommand,
			Model:   defaultEmbeddingModel,
			Store:   defaultEmbeddingStore,
		},
		Clustering: Clustering{
			Eps:            defaultEps,
			RefineEps:      defaultRefineEps,
			MinSamples:     defaultMinSamples,
			MaxClusterSize: defaultMaxClusterSize,
			Workers:        defaultClusterWorkers,
		},
		OCR: OCR{
			TesseractBinary: defaultTesseractBinary,
			Language:        defaultOCRLanguage,
		},
		Transcription: Transcription{
			Enabled:   defaultTranscriptionEnable,
			Model:     defaultTranscriptionModel,
			Language:  defaultTranscriptionLang,
			VADMethod: defaultTranscriptionVAD,
		},
		Postgres: Postgres{
			Table: defaultPostgresTable,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
