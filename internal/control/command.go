package control

import (
	"errors"
	"fmt"
	"strings"

	"fleetdeck/internal/fleet"
)

// Command is a lifecycle action on one worker.
type Command string

const (
	CommandPause  Command = "pause"
	CommandResume Command = "resume"
	CommandStop   Command = "stop"
)

// Commands lists every supported command.
var Commands = []Command{CommandPause, CommandResume, CommandStop}

func (c Command) String() string {
	return string(c)
}

// Destructive reports whether the command needs operator confirmation.
func (c Command) Destructive() bool {
	return c == CommandStop
}

// ParseCommand reads a command name case-insensitively.
func ParseCommand(raw string) (Command, error) {
	cmd := Command(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Commands {
		if cmd == known {
			return cmd, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, raw)
}

var (
	// ErrUnknownCommand is returned for names outside pause/resume/stop.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrSeedingLocked means pause/resume is not offered for a seeding worker.
	ErrSeedingLocked = errors.New("pause and resume are not available while seeding")
	// ErrNoop means the command would not change the worker's state.
	ErrNoop = errors.New("command has no effect in the current state")
)

// CheckPrecondition applies the operator-facing guards for cmd against the
// last known view. The Dispatcher does not call it; surfaces that offer
// commands use it to hide or reject options that make no sense.
func CheckPrecondition(view fleet.WorkerView, cmd Command) error {
	switch cmd {
	case CommandPause:
		if view.Lifecycle == fleet.StateSeeding {
			return ErrSeedingLocked
		}
		if view.Lifecycle == fleet.StatePaused {
			return fmt.Errorf("%w: %s is already paused", ErrNoop, view.DisplayName)
		}
	case CommandResume:
		if view.Lifecycle == fleet.StateSeeding {
			return ErrSeedingLocked
		}
		if view.Lifecycle != fleet.StatePaused {
			return fmt.Errorf("%w: %s is not paused", ErrNoop, view.DisplayName)
		}
	case CommandStop:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, string(cmd))
	}
	return nil
}
