// Package main hosts the fleetdeck CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds a backend
// client for the container management API, and hands off to the internal
// packages: one-shot reconciliation for status, the long-running loop for
// the terminal and HTTP dashboards, the control dispatcher for pause,
// resume and stop, and the creation workflow for new workers.
//
// Keep this package about presentation. Behaviour belongs in internal/
// and is surfaced here through commands and flags.
package main
