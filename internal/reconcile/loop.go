package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetdeck/internal/fleet"
	"fleetdeck/internal/logging"
)

const (
	// DefaultInterval is the polling cadence when none is configured.
	DefaultInterval = 3 * time.Second
	// DefaultRequestTimeout bounds each backend request when none is configured.
	DefaultRequestTimeout = 5 * time.Second
)

var (
	// ErrAlreadyRunning is returned by Start on a running loop.
	ErrAlreadyRunning = errors.New("reconcile loop already running")
	// ErrTerminated is returned by Start after Stop.
	ErrTerminated = errors.New("reconcile loop terminated")
)

// State is the loop's lifecycle phase.
type State string

const (
	StateIdle       State = "idle"
	StatePolling    State = "polling"
	StateTerminated State = "terminated"
)

// Option configures a Loop.
type Option func(*Loop)

// WithInterval sets the polling cadence.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithRequestTimeout bounds the listing and each status fetch.
func WithRequestTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger sets the loop logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the timestamp source for published snapshots.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// Loop owns the polling cadence and the current fleet snapshot.
type Loop struct {
	source   Source
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	refresh chan struct{}
	// samplers is touched only by the loop goroutine.
	samplers map[string]*logging.ProgressSampler

	mu       sync.RWMutex
	state    State
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	snapshot fleet.Snapshot
	sequence uint64
	subs     map[*Subscription]struct{}
}

// New constructs an idle loop polling source.
func New(source Source, opts ...Option) *Loop {
	l := &Loop{
		source:   source,
		interval: DefaultInterval,
		timeout:  DefaultRequestTimeout,
		logger:   logging.NewNop(),
		now:      time.Now,
		refresh:  make(chan struct{}, 1),
		samplers: make(map[string]*logging.ProgressSampler),
		state:    StateIdle,
		snapshot: fleet.NewSnapshot(nil, time.Time{}),
		subs:     make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.NewComponentLogger(l.logger, "reconcile")
	return l
}

// Start launches the polling goroutine. The first cycle runs immediately.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state == StateTerminated {
		l.mu.Unlock()
		return ErrTerminated
	}
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.started = true
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	l.logger.Debug("reconcile loop started",
		logging.Duration("interval", l.interval),
		logging.Duration("request_timeout", l.timeout),
	)
	go l.run(runCtx, done)
	return nil
}

// Stop cancels the timer and any in-flight cycle, waits for the polling
// goroutine, and closes every subscription. Results that arrive afterwards
// are discarded.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.state == StateTerminated {
		l.mu.Unlock()
		return
	}
	l.state = StateTerminated
	cancel := l.cancel
	done := l.done
	subs := l.subs
	l.subs = make(map[*Subscription]struct{})
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	for sub := range subs {
		sub.close()
	}
	l.logger.Debug("reconcile loop stopped")
}

// Refresh requests an immediate cycle. A request made while a cycle is in
// flight is absorbed by that cycle.
func (l *Loop) Refresh() {
	select {
	case l.refresh <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the most recently published snapshot.
func (l *Loop) Snapshot() fleet.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot.Clone()
}

// State reports the loop phase.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Interval returns the polling cadence.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-l.refresh:
		}

		l.cycle(ctx)
		if ctx.Err() != nil {
			return
		}

		select {
		case <-l.refresh:
		default:
		}
		timer.Reset(l.interval)
	}
}

func (l *Loop) cycle(ctx context.Context) {
	if !l.setState(StatePolling) {
		return
	}
	cycleID := uuid.NewString()
	ctx = logging.WithCycleID(ctx, cycleID)
	started := l.now()

	snap, err := collect(ctx, l.source, l.timeout, l.now)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		l.logger.WarnContext(ctx, "fleet listing failed; showing empty fleet",
			logging.Error(err),
			logging.String(logging.FieldEventType, "listing_failed"),
			logging.String(logging.FieldErrorHint, "check that the backend is running and reachable"),
		)
	}

	degraded := l.logWorkers(ctx, snap.Workers)

	seq, ok := l.publish(snap)
	if !ok {
		return
	}
	l.logger.DebugContext(ctx, "fleet snapshot published",
		logging.Uint64("sequence", seq),
		logging.Int("workers", len(snap.Workers)),
		logging.Int("degraded", degraded),
		logging.Duration("elapsed", l.now().Sub(started)),
	)
}

// logWorkers logs degraded workers and sampled progress, and forgets
// samplers for workers that left the fleet. It returns the degraded count.
func (l *Loop) logWorkers(ctx context.Context, views []fleet.WorkerView) int {
	degraded := 0
	seen := make(map[string]struct{}, len(views))
	for _, view := range views {
		seen[view.ID] = struct{}{}
		workerCtx := logging.WithWorkerID(ctx, view.ID)
		if view.Degraded {
			degraded++
			l.logger.DebugContext(workerCtx, "worker status unavailable",
				logging.String("detail", view.Detail),
				logging.String("lifecycle", view.Lifecycle.String()),
			)
			continue
		}
		sampler, ok := l.samplers[view.ID]
		if !ok {
			sampler = logging.NewProgressSampler(0)
			l.samplers[view.ID] = sampler
		}
		if sampler.ShouldLog(view.ProgressPercent, view.Lifecycle.String()) {
			l.logger.InfoContext(workerCtx, "worker progress",
				logging.String("name", view.DisplayName),
				logging.String("lifecycle", view.Lifecycle.String()),
				logging.Int("progress_percent", view.ProgressPercent),
				logging.Int64("download_rate", view.DownloadRate),
				logging.String(logging.FieldEventType, "worker_progress"),
			)
		}
	}
	for id := range l.samplers {
		if _, ok := seen[id]; !ok {
			delete(l.samplers, id)
		}
	}
	return degraded
}

func (l *Loop) setState(state State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateTerminated {
		return false
	}
	l.state = state
	return true
}

// publish replaces the snapshot wholesale and fans it out. It refuses once
// the loop is terminated.
func (l *Loop) publish(snap fleet.Snapshot) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateTerminated {
		return 0, false
	}
	l.sequence++
	snap.Sequence = l.sequence
	l.snapshot = snap
	l.state = StateIdle
	for sub := range l.subs {
		sub.deliver(snap.Clone())
	}
	return snap.Sequence, true
}
