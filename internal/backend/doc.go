// Package backend is the HTTP client for the container management API that
// owns the managed download workers.
//
// It lists containers, fetches each worker's raw status, dispatches
// pause/resume/stop commands, tails container logs, and submits new job
// descriptors. Status fetches never return a bare error: every outcome is a
// StatusResult so callers can fold failures into degraded data without
// special-casing transport errors at each call site.
package backend
