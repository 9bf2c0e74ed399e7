// Package fleet turns raw per-worker backend status into uniform worker views
// and fleet-wide statistics.
//
// Normalize is the only place heterogeneous backend payloads (missing
// fields, fetch failures, unrecognised state tokens) are reconciled into a
// single LifecycleState. Aggregate reduces a slice of views into a Summary.
// Both are pure: they perform no I/O and keep no state between calls, so a
// Snapshot is always rebuilt from scratch on every reconciliation cycle.
package fleet
