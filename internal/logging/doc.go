// Package logging assembles the structured slog loggers shared by the easel
// daemon and CLI.
//
// It owns the console/JSON handler selection, centralizes level and output
// plumbing, and exposes context-aware helpers so request handling code can
// automatically tag log lines with correlation IDs. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
