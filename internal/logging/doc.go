// Package logging assembles structured slog loggers and formatting helpers used
// across swingcoach.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code tags log lines
// with swing IDs, stages, and correlation IDs automatically. NewNop returns a
// discard logger for tests and wiring code that cannot fail.
package logging
