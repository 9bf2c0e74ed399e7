package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// CheckBackendHealth calls the backend health endpoint.
func CheckBackendHealth(ctx context.Context, prober Prober, timeout time.Duration) Result {
	const name = "Backend"
	if prober == nil {
		return Result{Name: name, Detail: "not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	health, err := prober.Health(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeBackendError(err)}
	}
	detail := health.Status
	if detail == "" {
		detail = "reachable"
	}
	if health.Version != "" {
		detail = fmt.Sprintf("%s (version %s)", detail, health.Version)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckListing verifies the container listing decodes.
func CheckListing(ctx context.Context, prober Prober, timeout time.Duration) Result {
	const name = "Container listing"
	if prober == nil {
		return Result{Name: name, Detail: "not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	containers, err := prober.ListContainers(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeBackendError(err)}
	}
	running := 0
	for _, c := range containers {
		if c.Running() {
			running++
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d containers (%d running)", len(containers), running)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDashboardLock reports whether a dashboard already holds the lock. A
// held lock is informational: status and control commands still work.
func CheckDashboardLock(path string) Result {
	const name = "Dashboard"
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("lock %s (error: %v)", path, err)}
	}
	if !ok {
		return Result{Name: name, Optional: true, Detail: "running (lock held by another process)"}
	}
	_ = lock.Unlock()
	return Result{Name: name, Passed: true, Detail: "not running"}
}
