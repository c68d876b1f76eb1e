// Package stageexec runs a single pipeline stage with consistent logging and
// failure classification.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"slidesift/internal/logging"
	"slidesift/internal/services"
	"slidesift/internal/stage"
)

// Options controls stage execution.
type Options struct {
	Logger  *slog.Logger
	Handler stage.Handler
	Job     *stage.Job
}

// Run executes Prepare then Execute for one stage. The returned error is the
// stage's own, unwrapped, so callers can classify it with services.Details.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable")
	}
	if opts.Job == nil {
		return fmt.Errorf("stage job is required")
	}
	name := opts.Handler.Name()

	stageCtx := services.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	started := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("video", strings.TrimSpace(opts.Job.Video)),
		logging.String("run_dir", opts.Job.RunDir),
	)

	if err := opts.Handler.Prepare(stageCtx, opts.Job); err != nil {
		return handleFailure(stageLogger, name, err, started)
	}
	if err := stageCtx.Err(); err != nil {
		return handleFailure(stageLogger, name, err, started)
	}
	if err := opts.Handler.Execute(stageCtx, opts.Job); err != nil {
		return handleFailure(stageLogger, name, err, started)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return nil
}

func handleFailure(logger *slog.Logger, stageName string, stageErr error, started time.Time) error {
	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = "stage failed"
	}
	kind := details.Kind
	if kind == "" {
		kind = "unclassified"
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.String(logging.FieldErrorKind, kind),
		logging.String(logging.FieldErrorHint, hintFor(details.Marker, stageName)),
		logging.String("error_message", message),
		logging.Duration("stage_duration", time.Since(started)),
		logging.Error(stageErr),
	)
	return stageErr
}

func hintFor(marker error, stageName string) string {
	switch marker {
	case services.ErrMissingDependency:
		return "install the missing tool and rerun; see `slidesift status`"
	case services.ErrEmptyInput:
		if stageName == stage.Extraction {
			return "lower [extraction] threshold and rerun"
		}
		return "check the previous stage produced output"
	case services.ErrNotFound:
		return "check the input path"
	case services.ErrConfiguration:
		return "fix the configuration; see `slidesift config validate`"
	case services.ErrExternalTool:
		return "inspect the tool output in the error message"
	default:
		return "check logs for details"
	}
}
