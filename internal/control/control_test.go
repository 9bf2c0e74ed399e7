package control_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"fleetdeck/internal/control"
	"fleetdeck/internal/fleet"
	"fleetdeck/internal/logging"
)

type recordingCommander struct {
	mu         sync.Mutex
	calls      []string
	requestIDs []string
	err        error
}

func (r *recordingCommander) Command(ctx context.Context, id, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, action+":"+id)
	reqID, _ := logging.CorrelationIDFromContext(ctx)
	r.requestIDs = append(r.requestIDs, reqID)
	return r.err
}

type countingRefresher struct {
	mu    sync.Mutex
	count int
}

func (c *countingRefresher) Refresh() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func (c *countingRefresher) refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func TestStopWithoutConfirmationDoesNotDispatch(t *testing.T) {
	commander := &recordingCommander{}
	refresher := &countingRefresher{}
	dispatcher := control.NewDispatcher(commander, refresher, control.NeverConfirm, logging.NewNop())

	_, err := dispatcher.Send(context.Background(), "w1", control.CommandStop)
	if !errors.Is(err, control.ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if len(commander.calls) != 0 {
		t.Fatalf("expected no backend request, got %v", commander.calls)
	}
	if refresher.refreshes() != 0 {
		t.Fatalf("declined stop must not refresh, got %d", refresher.refreshes())
	}
}

func TestConfirmErrorCountsAsDeclined(t *testing.T) {
	commander := &recordingCommander{}
	failing := control.ConfirmFunc(func(context.Context, string, control.Command) (bool, error) {
		return false, errors.New("tty closed")
	})
	dispatcher := control.NewDispatcher(commander, &countingRefresher{}, failing, nil)

	_, err := dispatcher.Send(context.Background(), "w1", control.CommandStop)
	if !errors.Is(err, control.ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if len(commander.calls) != 0 {
		t.Fatalf("expected no backend request, got %v", commander.calls)
	}
}

func TestConfirmedStopDispatchesAndRefreshes(t *testing.T) {
	commander := &recordingCommander{}
	refresher := &countingRefresher{}
	dispatcher := control.NewDispatcher(commander, refresher, control.AlwaysConfirm, nil)

	outcome, err := dispatcher.Send(context.Background(), "w1", control.CommandStop)
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if !outcome.Acknowledged || outcome.RequestID == "" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(commander.calls) != 1 || commander.calls[0] != "stop:w1" {
		t.Fatalf("unexpected calls %v", commander.calls)
	}
	if commander.requestIDs[0] != outcome.RequestID {
		t.Fatalf("request id not propagated: %q vs %q", commander.requestIDs[0], outcome.RequestID)
	}
	if refresher.refreshes() != 1 {
		t.Fatalf("expected one refresh, got %d", refresher.refreshes())
	}
}

func TestPauseSkipsConfirmation(t *testing.T) {
	commander := &recordingCommander{}
	dispatcher := control.NewDispatcher(commander, &countingRefresher{}, control.NeverConfirm, nil)

	if _, err := dispatcher.Send(context.Background(), "w1", control.CommandPause); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if len(commander.calls) != 1 || commander.calls[0] != "pause:w1" {
		t.Fatalf("unexpected calls %v", commander.calls)
	}
}

func TestFailedCommandStillRefreshes(t *testing.T) {
	commander := &recordingCommander{err: errors.New("404 no such container")}
	refresher := &countingRefresher{}
	dispatcher := control.NewDispatcher(commander, refresher, control.AlwaysConfirm, nil)

	outcome, err := dispatcher.Send(context.Background(), "w1", control.CommandResume)
	if !errors.Is(err, control.ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	if outcome.Acknowledged {
		t.Fatal("failed command must not be acknowledged")
	}
	if refresher.refreshes() != 1 {
		t.Fatalf("expected refresh after failure, got %d", refresher.refreshes())
	}
	if len(commander.calls) != 1 {
		t.Fatalf("command must not be retried, got %v", commander.calls)
	}
}

func TestSendRejectsUnknownCommand(t *testing.T) {
	commander := &recordingCommander{}
	dispatcher := control.NewDispatcher(commander, nil, control.AlwaysConfirm, nil)
	if _, err := dispatcher.Send(context.Background(), "w1", control.Command("restart")); !errors.Is(err, control.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if len(commander.calls) != 0 {
		t.Fatalf("unexpected calls %v", commander.calls)
	}
}

func TestParseCommand(t *testing.T) {
	for raw, want := range map[string]control.Command{
		"pause":   control.CommandPause,
		" Resume": control.CommandResume,
		"STOP":    control.CommandStop,
	} {
		got, err := control.ParseCommand(raw)
		if err != nil || got != want {
			t.Errorf("ParseCommand(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := control.ParseCommand("kill"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestCheckPrecondition(t *testing.T) {
	cases := []struct {
		name  string
		state fleet.LifecycleState
		cmd   control.Command
		want  error
	}{
		{"pause downloading", fleet.StateDownloading, control.CommandPause, nil},
		{"pause seeding", fleet.StateSeeding, control.CommandPause, control.ErrSeedingLocked},
		{"pause paused", fleet.StatePaused, control.CommandPause, control.ErrNoop},
		{"resume paused", fleet.StatePaused, control.CommandResume, nil},
		{"resume seeding", fleet.StateSeeding, control.CommandResume, control.ErrSeedingLocked},
		{"resume downloading", fleet.StateDownloading, control.CommandResume, control.ErrNoop},
		{"stop seeding", fleet.StateSeeding, control.CommandStop, nil},
		{"stop unreachable", fleet.StateUnreachable, control.CommandStop, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := control.CheckPrecondition(fleet.WorkerView{ID: "w", DisplayName: "w", Lifecycle: tc.state}, tc.cmd)
			if tc.want == nil && err != nil {
				t.Fatalf("expected nil, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPromptConfirmer(t *testing.T) {
	cases := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
		"maybe": false,
	}
	for input, want := range cases {
		var out bytes.Buffer
		confirmer := control.NewPromptConfirmer(strings.NewReader(input), &out)
		got, err := confirmer.Confirm(context.Background(), "w1", control.CommandStop)
		if err != nil {
			t.Fatalf("Confirm(%q) error: %v", input, err)
		}
		if got != want {
			t.Errorf("Confirm(%q) = %v want %v", input, got, want)
		}
		if !strings.Contains(out.String(), "Stop worker w1?") {
			t.Errorf("unexpected prompt %q", out.String())
		}
	}
}
