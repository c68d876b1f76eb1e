// Package workflow runs a video through the slidesift stages.
//
// The Pipeline lays out one run directory per video under the configured work
// directory, then drives extraction, embedding, clustering, OCR, and
// (optionally) transcription strictly in order via stageexec.Run. Stages hand
// off only through the files recorded on stage.Job; the first failure halts the
// run and nothing is rolled back. A file lock on the work directory keeps two
// runs from writing the same tree, and each run carries a fresh run id that
// every log record inherits as its correlation id.
//
// The same handlers back the single-stage CLI verbs through RunStage.
package workflow
