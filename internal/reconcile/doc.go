// Package reconcile keeps an in-memory fleet snapshot converged with the
// backend.
//
// A Loop lists the managed containers on a fixed cadence, fans out one status
// fetch per container, and publishes a freshly built fleet.Snapshot to its
// observers. A failing worker only degrades its own view; a failed listing
// degrades the whole snapshot to empty and is retried on the next tick.
// Refresh requests an immediate cycle and restarts the interval; requests made
// while a cycle is in flight fold into that cycle instead of stacking.
package reconcile
