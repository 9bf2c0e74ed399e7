package preflight

import (
	"context"
	"fmt"

	"fleetdeck/internal/backend"
	"fleetdeck/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
	// Optional failures are reported but do not fail the run.
	Optional bool `json:"optional,omitempty"`
}

// Prober is the read side of the backend used by the checks.
// *backend.Client satisfies it.
type Prober interface {
	Health(ctx context.Context) (backend.Health, error)
	ListContainers(ctx context.Context) ([]backend.Container, error)
}

// RunAll executes every check for cfg against the backend.
func RunAll(ctx context.Context, cfg *config.Config, prober Prober) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckBackendHealth(ctx, prober, cfg.RequestTimeout()),
		CheckListing(ctx, prober, cfg.RequestTimeout()),
		CheckDirectoryAccess("State directory", cfg.Dashboard.StateDir),
	}
	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}
	results = append(results, CheckDashboardLock(cfg.LockPath()))
	return results
}

// Passed reports whether every required check passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return false
		}
	}
	return true
}

// Failures counts required checks that did not pass.
func Failures(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed && !r.Optional {
			n++
		}
	}
	return n
}

func summarizeBackendError(err error) string {
	switch {
	case backend.IsUnavailable(err):
		return "unreachable"
	case backend.IsNotFound(err):
		return "endpoint not found (is this the container management API?)"
	default:
		return fmt.Sprintf("error: %v", err)
	}
}
