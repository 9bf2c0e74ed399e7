// Package logging assembles structured slog loggers and formatting helpers used
// across fleetdeck.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so reconciliation and command
// code can automatically tag log lines with worker IDs, cycle IDs, and
// correlation IDs. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
package logging
