package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"slidesift/internal/language"
	"slidesift/internal/logging"
	"slidesift/internal/services"
)

const stageName = "transcription"

// CommandRunner executes an external command to completion.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg           Config
	ffmpegBinary  string
	logger        *slog.Logger
	commandRunner CommandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, ffmpegBinary string, logger *slog.Logger) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:          cfg,
		ffmpegBinary: ffmpegBinary,
		logger:       logging.NewComponentLogger(logger, "whisperx"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Language returns the pinned ISO 639-1 language passed to WhisperX.
func (s *Service) Language() string {
	if lang := language.ToISO2(s.cfg.Language); lang != "" {
		return lang
	}
	return DefaultLanguage
}

// ExtractAudio writes the video's audio track to dest as mono 16kHz WAV.
func (s *Service) ExtractAudio(ctx context.Context, source, dest string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.ffmpegBinary, buildAudioArgs(source, dest)...)
	}
	return ExtractAudio(ctx, s.ffmpegBinary, source, dest)
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// TranscribeResult contains the result of a transcription.
type TranscribeResult struct {
	// Text is the plain text transcription as written to TranscriptPath.
	Text           string
	TranscriptPath string
	// JSONPath is the raw WhisperX output.
	JSONPath string
	// Language is the language WhisperX reported, which may differ from the pinned one.
	Language string
	Segments int
}

// Transcribe extracts audio from video, runs WhisperX over it, and writes the
// space-joined transcript to transcriptPath. Intermediate files live in workDir,
// or in a temporary directory removed afterwards when workDir is empty.
func (s *Service) Transcribe(ctx context.Context, video, transcriptPath, workDir string) (TranscribeResult, error) {
	var result TranscribeResult

	if strings.TrimSpace(video) == "" {
		return result, services.Wrap(services.ErrValidation, stageName, "validate input", "video path required", nil)
	}
	if strings.TrimSpace(transcriptPath) == "" {
		return result, services.Wrap(services.ErrValidation, stageName, "validate input", "transcript path required", nil)
	}
	if info, err := os.Stat(video); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, services.Wrap(services.ErrNotFound, stageName, "locate video", fmt.Sprintf("video file not found at %s", video), nil)
		}
		return result, services.Wrap(services.ErrValidation, stageName, "locate video", "stat video", err)
	} else if info.IsDir() {
		return result, services.Wrap(services.ErrValidation, stageName, "locate video", fmt.Sprintf("%s is a directory", video), nil)
	}

	if workDir == "" {
		tmp, err := os.MkdirTemp("", "slidesift-whisperx-")
		if err != nil {
			return result, services.Wrap(services.ErrTransient, stageName, "prepare workdir", "create temp dir", err)
		}
		defer os.RemoveAll(tmp)
		workDir = tmp
	} else if err := os.MkdirAll(workDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrTransient, stageName, "prepare workdir", "ensure workdir", err)
	}

	base := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	audioPath := filepath.Join(workDir, base+".wav")

	started := time.Now()
	s.logger.Info("extracting audio",
		logging.String(logging.FieldEventType, "audio_extract_start"),
		logging.String("video", video),
		logging.String("audio_path", audioPath),
	)
	if err := s.ExtractAudio(ctx, video, audioPath); err != nil {
		return result, services.Wrap(services.ErrExternalTool, stageName, "extract audio", "ffmpeg failed", err)
	}

	lang := s.Language()
	s.logger.Info("transcribing audio",
		logging.String(logging.FieldEventType, "transcribe_start"),
		logging.String("model", s.Model()),
		logging.String("language", lang),
		logging.Bool("cuda", s.cfg.CUDAEnabled),
	)
	if err := s.run(ctx, UVXCommand, s.buildArgs(audioPath, workDir, lang)...); err != nil {
		return result, services.Wrap(services.ErrExternalTool, stageName, "run whisperx", "transcription failed", err)
	}

	result.JSONPath = filepath.Join(workDir, base+".json")
	payload, err := loadPayload(result.JSONPath)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, stageName, "read whisperx output", "whisperx produced no usable json", err)
	}
	result.Text = joinSegments(payload.Segments)
	result.Segments = len(payload.Segments)
	result.Language = strings.TrimSpace(payload.Language)

	if err := os.MkdirAll(filepath.Dir(transcriptPath), 0o755); err != nil {
		return result, services.Wrap(services.ErrTransient, stageName, "write transcript", "ensure output dir", err)
	}
	if err := os.WriteFile(transcriptPath, []byte(result.Text), 0o644); err != nil {
		return result, services.Wrap(services.ErrTransient, stageName, "write transcript", "write file", err)
	}
	result.TranscriptPath = transcriptPath

	if result.Language != "" && result.Language != lang {
		s.logger.Info("detected language differs from pinned language",
			logging.String("language", result.Language),
			logging.String("pinned_language", lang),
		)
	}
	s.logger.Info("transcription complete",
		logging.String(logging.FieldEventType, "transcribe_complete"),
		logging.String("language", result.Language),
		logging.Int("segment_count", result.Segments),
		logging.Int("char_count", len(result.Text)),
		logging.String("transcript_path", transcriptPath),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return result, nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir, lang string) []string {
	args := make([]string, 0, 40)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice, "--compute_type", CUDAComputeType)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type payload struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

func loadPayload(jsonPath string) (payload, error) {
	var p payload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse whisperx json: %w", err)
	}
	return p, nil
}

func joinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
