// Package main hosts the slidesift CLI entrypoint and command graph.
//
// Every pipeline stage is exposed as its own verb operating on explicit paths
// (extract, embed, cluster, ocr, transcribe) so a stage can be rerun against
// the output of a previous one. The run verb drives all stages for one video
// under the configured work directory, and status reports whether the
// external tools and directories a run needs are in place.
//
// Keep this package thin: stage behaviour lives in internal/workflow and the
// service adapters, the CLI only resolves paths and renders results.
package main
