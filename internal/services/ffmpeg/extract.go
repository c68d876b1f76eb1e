// Package ffmpeg extracts candidate slide frames at scene-change boundaries.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"slidesift/internal/logging"
	"slidesift/internal/services"
)

// Frame naming and extraction defaults.
const (
	DefaultBinary    = "ffmpeg"
	DefaultThreshold = 0.25
	FramePrefix      = "slide_"
	FramePattern     = FramePrefix + "%04d.png"
)

const stageName = "extraction"

// CommandRunner executes a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Extractor runs the ffmpeg scene-change filter over a video.
type Extractor struct {
	binary        string
	threshold     float64
	logger        *slog.Logger
	commandRunner CommandRunner
}

// Result describes the frames written by one extraction.
type Result struct {
	FramesDir string
	Frames    []string
	// ToolWarning holds ffmpeg's stderr when it exited non-zero but frames were still counted.
	ToolWarning string
}

// NewExtractor constructs an extractor. A non-positive threshold selects DefaultThreshold.
func NewExtractor(binary string, threshold float64, logger *slog.Logger) *Extractor {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		binary:    binary,
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Extractor) WithCommandRunner(runner CommandRunner) {
	e.commandRunner = runner
}

// Threshold returns the scene score cutoff in use.
func (e *Extractor) Threshold() float64 { return e.threshold }

// Extract writes slide_NNNN.png frames for each scene change in video into framesDir.
// A non-zero ffmpeg exit is reported as a warning; the run only fails when no frames
// were produced.
func (e *Extractor) Extract(ctx context.Context, video, framesDir string) (Result, error) {
	result := Result{FramesDir: framesDir}
	if info, err := os.Stat(video); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, services.Wrap(services.ErrNotFound, stageName, "locate video", fmt.Sprintf("video file not found at %s", video), nil)
		}
		return result, services.Wrap(services.ErrValidation, stageName, "locate video", "stat video", err)
	} else if info.IsDir() {
		return result, services.Wrap(services.ErrValidation, stageName, "locate video", fmt.Sprintf("%s is a directory", video), nil)
	}
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrTransient, stageName, "prepare output", "create frames directory", err)
	}

	started := time.Now()
	args := BuildArgs(video, framesDir, e.threshold)
	e.logger.Info("extracting scene-change frames",
		logging.String(logging.FieldEventType, "extract_start"),
		logging.String("video", video),
		logging.Float64("threshold", e.threshold),
		logging.String("frames_dir", framesDir),
	)
	e.logger.Debug("ffmpeg command", logging.String("command", e.binary), logging.Any("args", args))

	output, err := e.run(ctx, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return result, services.Wrap(services.ErrMissingDependency, stageName, "run ffmpeg", fmt.Sprintf("%s not available", e.binary), err)
		}
		result.ToolWarning = strings.TrimSpace(string(output))
		logging.WarnWithContext(e.logger, "ffmpeg exited with an error", "extract_tool_error",
			logging.Error(err),
			logging.String("stderr", result.ToolWarning),
			logging.String(logging.FieldImpact, "frames written before the failure are still used"),
		)
	}

	frames, err := ListFrames(framesDir)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, stageName, "count frames", "list frames directory", err)
	}
	result.Frames = frames
	if len(frames) == 0 {
		return result, services.Wrap(services.ErrEmptyInput, stageName, "count frames",
			fmt.Sprintf("no frames extracted; try a lower threshold (now %s)", strconv.FormatFloat(e.threshold, 'g', -1, 64)), nil)
	}

	e.logger.Info("frame extraction complete",
		logging.String(logging.FieldEventType, "extract_complete"),
		logging.Int("frame_count", len(frames)),
		logging.String("frames_dir", framesDir),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return result, nil
}

func (e *Extractor) run(ctx context.Context, args ...string) ([]byte, error) {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, e.binary, args...)
	}
	cmd := exec.CommandContext(ctx, e.binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// BuildArgs returns the ffmpeg arguments selecting frames whose scene score exceeds threshold.
func BuildArgs(video, framesDir string, threshold float64) []string {
	filter := fmt.Sprintf("select='gt(scene,%s)',setpts=N/FRAME_RATE/TB", strconv.FormatFloat(threshold, 'g', -1, 64))
	return []string{
		"-i", video,
		"-vf", filter,
		"-vsync", "vfr",
		"-frame_pts", "1",
		"-q:v", "2",
		filepath.Join(framesDir, FramePattern),
	}
}

// ListFrames returns the sorted paths of slide_*.png files in dir.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var frames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, FramePrefix) && strings.HasSuffix(strings.ToLower(name), ".png") {
			frames = append(frames, filepath.Join(dir, name))
		}
	}
	slices.Sort(frames)
	return frames, nil
}
