package stageexec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"slidesift/internal/services"
	"slidesift/internal/stage"
)

type fakeHandler struct {
	name       string
	prepareErr error
	executeErr error
	calls      []string
	logger     *slog.Logger
	stageSeen  string
}

func (f *fakeHandler) Name() string { return f.name }

func (f *fakeHandler) SetLogger(l *slog.Logger) { f.logger = l }

func (f *fakeHandler) Prepare(ctx context.Context, _ *stage.Job) error {
	f.calls = append(f.calls, "prepare")
	f.stageSeen, _ = services.StageFromContext(ctx)
	return f.prepareErr
}

func (f *fakeHandler) Execute(context.Context, *stage.Job) error {
	f.calls = append(f.calls, "execute")
	return f.executeErr
}

func (f *fakeHandler) HealthCheck(context.Context) stage.Health { return stage.Healthy(f.name) }

func TestRunSuccess(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := &fakeHandler{name: stage.Clustering}

	if err := Run(context.Background(), Options{Logger: logger, Handler: handler, Job: &stage.Job{}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(handler.calls, ",") != "prepare,execute" {
		t.Fatalf("calls = %v", handler.calls)
	}
	if handler.stageSeen != stage.Clustering {
		t.Fatalf("stage in context = %q", handler.stageSeen)
	}
	if handler.logger == nil {
		t.Fatal("expected logger to be injected")
	}
	out := buf.String()
	if !strings.Contains(out, `"event_type":"stage_complete"`) || !strings.Contains(out, `"stage":"clustering"`) {
		t.Fatalf("missing completion log: %s", out)
	}
}

func TestRunPrepareFailureSkipsExecute(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	stageErr := services.Wrap(services.ErrEmptyInput, stage.Extraction, "count frames", "no frames", nil)
	handler := &fakeHandler{name: stage.Extraction, prepareErr: stageErr}

	err := Run(context.Background(), Options{Logger: logger, Handler: handler, Job: &stage.Job{}})
	if !errors.Is(err, services.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if strings.Join(handler.calls, ",") != "prepare" {
		t.Fatalf("execute should not run: %v", handler.calls)
	}
	out := buf.String()
	if !strings.Contains(out, `"error_kind":"empty input"`) || !strings.Contains(out, "lower [extraction] threshold") {
		t.Fatalf("missing classified failure log: %s", out)
	}
}

func TestRunExecuteFailure(t *testing.T) {
	handler := &fakeHandler{name: stage.OCR, executeErr: errors.New("boom")}
	err := Run(context.Background(), Options{Handler: handler, Job: &stage.Job{}})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected stage error, got %v", err)
	}
}

func TestRunCancelledBetweenPhases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := &fakeHandler{name: stage.Embedding}
	cancel()
	err := Run(ctx, Options{Handler: handler, Job: &stage.Job{}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if strings.Join(handler.calls, ",") != "prepare" {
		t.Fatalf("calls = %v", handler.calls)
	}
}

func TestRunValidatesOptions(t *testing.T) {
	if err := Run(context.Background(), Options{Job: &stage.Job{}}); err == nil {
		t.Fatal("expected error without handler")
	}
	if err := Run(context.Background(), Options{Handler: &fakeHandler{name: "x"}}); err == nil {
		t.Fatal("expected error without job")
	}
}
