// Package stage defines the contract shared by the pipeline stages and the job
// they hand off through the filesystem.
package stage

import (
	"context"
	"log/slog"
)

// Stage names, in pipeline order.
const (
	Extraction    = "extraction"
	Embedding     = "embedding"
	Clustering    = "clustering"
	OCR           = "ocr"
	Transcription = "transcription"
)

// Order lists every stage in execution order.
var Order = []string{Extraction, Embedding, Clustering, OCR, Transcription}

// Handler describes the contract the pipeline needs from each stage.
type Handler interface {
	Name() string
	Prepare(context.Context, *Job) error
	Execute(context.Context, *Job) error
	HealthCheck(context.Context) Health
}

// LoggerAware handlers receive the stage-scoped logger before Prepare.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
