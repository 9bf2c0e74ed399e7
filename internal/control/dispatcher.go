package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleetdeck/internal/logging"
)

var (
	// ErrNotConfirmed means a destructive command was declined; nothing was sent.
	ErrNotConfirmed = errors.New("command not confirmed")
	// ErrCommandFailed wraps a backend rejection or transport failure.
	ErrCommandFailed = errors.New("command failed")
)

// Commander sends a lifecycle action to the backend. *backend.Client
// satisfies it.
type Commander interface {
	Command(ctx context.Context, id, action string) error
}

// Refresher requests an out-of-band reconciliation. *reconcile.Loop
// satisfies it.
type Refresher interface {
	Refresh()
}

// Outcome describes one dispatched command.
type Outcome struct {
	Command      Command       `json:"command"`
	WorkerID     string        `json:"worker_id"`
	RequestID    string        `json:"request_id"`
	Acknowledged bool          `json:"acknowledged"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Dispatcher issues commands and forces a refresh afterwards.
type Dispatcher struct {
	commander Commander
	refresher Refresher
	confirmer Confirmer
	logger    *slog.Logger
}

// NewDispatcher wires a dispatcher. A nil confirmer declines every stop.
func NewDispatcher(commander Commander, refresher Refresher, confirmer Confirmer, logger *slog.Logger) *Dispatcher {
	if confirmer == nil {
		confirmer = NeverConfirm
	}
	return &Dispatcher{
		commander: commander,
		refresher: refresher,
		confirmer: confirmer,
		logger:    logging.NewComponentLogger(logger, "control"),
	}
}

// Send dispatches cmd to workerID. Stop passes the confirmation gate first
// and returns ErrNotConfirmed without contacting the backend when declined.
// Every dispatched command, successful or not, is followed by a refresh.
func (d *Dispatcher) Send(ctx context.Context, workerID string, cmd Command) (Outcome, error) {
	workerID = strings.TrimSpace(workerID)
	outcome := Outcome{Command: cmd, WorkerID: workerID}
	if workerID == "" {
		return outcome, errors.New("worker id is required")
	}
	if _, err := ParseCommand(string(cmd)); err != nil {
		return outcome, err
	}
	if d.commander == nil {
		return outcome, fmt.Errorf("%w: no backend configured", ErrCommandFailed)
	}

	ctx = logging.WithWorkerID(ctx, workerID)
	if cmd.Destructive() {
		ok, err := d.confirmer.Confirm(ctx, workerID, cmd)
		if err != nil {
			return outcome, fmt.Errorf("%w: %w", ErrNotConfirmed, err)
		}
		if !ok {
			d.logger.InfoContext(ctx, "command declined", logging.String(logging.FieldCommand, cmd.String()))
			return outcome, ErrNotConfirmed
		}
	}

	outcome.RequestID = uuid.NewString()
	ctx = logging.WithCorrelationID(ctx, outcome.RequestID)

	started := time.Now()
	err := d.commander.Command(ctx, workerID, cmd.String())
	outcome.Elapsed = time.Since(started)
	if d.refresher != nil {
		d.refresher.Refresh()
	}

	if err != nil {
		logging.WarnWithContext(d.logger, "worker command failed",
			"command_failed",
			"check the worker id and backend logs; the fleet view has been refreshed",
			logging.String(logging.FieldWorkerID, workerID),
			logging.String(logging.FieldCommand, cmd.String()),
			logging.String(logging.FieldCorrelationID, outcome.RequestID),
			logging.Error(err),
		)
		return outcome, fmt.Errorf("%w: %s %s: %w", ErrCommandFailed, cmd, workerID, err)
	}

	outcome.Acknowledged = true
	d.logger.InfoContext(ctx, "worker command acknowledged",
		logging.String(logging.FieldCommand, cmd.String()),
		logging.Duration("elapsed", outcome.Elapsed),
	)
	return outcome, nil
}
