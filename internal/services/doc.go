// Package services defines shared utilities consumed by the pipeline stage
// handlers and external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and cluster identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (missing dependency, empty input, external tool) and map them to process
//     exit codes.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
