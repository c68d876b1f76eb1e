// Package logging assembles structured slog loggers and formatting helpers used
// across slidesift stages.
//
// It owns the console, colour, and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code automatically tags
// log lines with the run identifier, stage name, and cluster id. A persistent
// JSON copy of every record can be teed into the log directory.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same keys.
package logging
