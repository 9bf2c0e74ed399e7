package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleetdeck/internal/backend"
	"fleetdeck/internal/fleet"
)

// Source is the read side of the backend the loop polls. *backend.Client
// satisfies it.
type Source interface {
	ListContainers(ctx context.Context) ([]backend.Container, error)
	ContainerStatus(ctx context.Context, id string) backend.StatusResult
}

// Collect runs a single reconciliation cycle. When the listing fails the
// returned snapshot is empty with ListingError set, and the error is returned
// as well. Per-worker failures are folded into degraded views.
func Collect(ctx context.Context, source Source, timeout time.Duration) (fleet.Snapshot, error) {
	return collect(ctx, source, timeout, time.Now)
}

func collect(ctx context.Context, source Source, timeout time.Duration, now func() time.Time) (fleet.Snapshot, error) {
	if source == nil {
		return fleet.Snapshot{}, fmt.Errorf("reconcile: source is required")
	}

	containers, err := listContainers(ctx, source, timeout)
	if err != nil {
		snap := fleet.NewSnapshot(nil, now())
		snap.ListingError = err.Error()
		return snap, fmt.Errorf("list containers: %w", err)
	}

	results := make([]backend.StatusResult, len(containers))
	var wg sync.WaitGroup
	wg.Add(len(containers))
	for i, c := range containers {
		go func() {
			defer wg.Done()
			results[i] = fetchStatus(ctx, source, c.ID, timeout)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fleet.Snapshot{}, err
	}
	return fleet.NewSnapshot(fleet.NormalizeAll(containers, results), now()), nil
}

func listContainers(ctx context.Context, source Source, timeout time.Duration) ([]backend.Container, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type listing struct {
		containers []backend.Container
		err        error
	}
	done := make(chan listing, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- listing{err: fmt.Errorf("listing panicked: %v", r)}
			}
		}()
		containers, err := source.ListContainers(ctx)
		done <- listing{containers: containers, err: err}
	}()

	select {
	case result := <-done:
		return result.containers, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetchStatus bounds one status fetch by timeout even when the source ignores
// its context, and turns a panicking source into a failed result.
func fetchStatus(ctx context.Context, source Source, id string, timeout time.Duration) backend.StatusResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan backend.StatusResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- backend.Failed(fmt.Errorf("status fetch for %s panicked: %v", id, r))
			}
		}()
		done <- source.ContainerStatus(ctx, id)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		return backend.Failed(fmt.Errorf("status fetch for %s: %w", id, ctx.Err()))
	}
}
