package fleet_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"fleetdeck/internal/backend"
	"fleetdeck/internal/fleet"
)

func f64(v float64) *float64 { return &v }

func str(v string) *string { return &v }

func boolean(v bool) *bool { return &v }

func running(id, name string) backend.Container {
	return backend.Container{ID: id, Name: name, State: "running"}
}

func TestNormalizeDownloadingWorker(t *testing.T) {
	status := &backend.Status{
		State:         str("downloading"),
		Paused:        boolean(false),
		Progress:      f64(67.2),
		DownloadSpeed: f64(5452595),
		UploadSpeed:   f64(0),
		TorrentName:   str("ubuntu.iso"),
		ETA:           str("1h 5m"),
	}
	view := fleet.Normalize(running("a", "worker-a"), backend.Ok(status))

	if view.Lifecycle != fleet.StateDownloading {
		t.Fatalf("expected downloading, got %s", view.Lifecycle)
	}
	if view.ProgressPercent != 67 {
		t.Fatalf("expected progress 67, got %d", view.ProgressPercent)
	}
	if view.DownloadRate != 5452595 || view.UploadRate != 0 {
		t.Fatalf("unexpected rates: %d / %d", view.DownloadRate, view.UploadRate)
	}
	if view.Degraded || view.UserPaused {
		t.Fatalf("unexpected flags: %+v", view)
	}
	if !view.ETA.Known || view.ETA.Duration != time.Hour+5*time.Minute {
		t.Fatalf("unexpected eta %+v", view.ETA)
	}
	if view.DisplayName != "worker-a" || view.TorrentName != "ubuntu.iso" {
		t.Fatalf("unexpected identity: %+v", view)
	}
}

func TestNormalizeFailedFetchOnRunningContainer(t *testing.T) {
	view := fleet.Normalize(running("b", "worker-b"), backend.Failed(errors.New("connection refused")))

	if view.Lifecycle != fleet.StateStarting {
		t.Fatalf("expected starting, got %s", view.Lifecycle)
	}
	if view.ProgressPercent != 0 || view.DownloadRate != 0 || view.UploadRate != 0 {
		t.Fatalf("expected zeroed metrics, got %+v", view)
	}
	if view.ETA.Known || view.ETA.String() != "unknown" {
		t.Fatalf("expected unknown eta, got %+v", view.ETA)
	}
	if !view.Degraded || !strings.Contains(view.Detail, "connection refused") {
		t.Fatalf("expected degraded view with detail, got %+v", view)
	}
	if view.ID != "b" || view.DisplayName != "worker-b" || view.RunState != "running" {
		t.Fatalf("identity not preserved: %+v", view)
	}
}

func TestNormalizeFailedFetchOnStoppedContainer(t *testing.T) {
	c := backend.Container{ID: "c", Name: "/worker-c", State: "exited"}
	view := fleet.Normalize(c, backend.Failed(nil))
	if view.Lifecycle != fleet.StateUnreachable {
		t.Fatalf("expected unreachable, got %s", view.Lifecycle)
	}
	if view.DisplayName != "worker-c" {
		t.Fatalf("expected leading slash trimmed, got %q", view.DisplayName)
	}
}

func TestNormalizeFailedFetchNeverPaused(t *testing.T) {
	c := backend.Container{ID: "p", Name: "paused-one", State: "paused"}
	view := fleet.Normalize(c, backend.Failed(errors.New("timeout")))
	if view.Lifecycle == fleet.StatePaused || view.UserPaused {
		t.Fatalf("failed fetch must not yield paused: %+v", view)
	}
}

func TestNormalizeProgressClamp(t *testing.T) {
	cases := []struct {
		progress float64
		want     int
	}{
		{-5, 0},
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{99.5, 100},
		{100, 100},
		{150, 100},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.progress), func(t *testing.T) {
			status := &backend.Status{State: str("downloading"), Progress: f64(tc.progress)}
			view := fleet.Normalize(running("x", "x"), backend.Ok(status))
			if view.ProgressPercent != tc.want {
				t.Fatalf("progress %v: got %d want %d", tc.progress, view.ProgressPercent, tc.want)
			}
		})
	}
}

func TestNormalizeLifecycleMapping(t *testing.T) {
	cases := []struct {
		name     string
		runState string
		token    *string
		paused   *bool
		want     fleet.LifecycleState
	}{
		{"downloading", "running", str("downloading"), nil, fleet.StateDownloading},
		{"seeding", "running", str("seeding"), nil, fleet.StateSeeding},
		{"completed maps to seeding", "running", str("completed"), nil, fleet.StateSeeding},
		{"starting", "running", str("starting"), nil, fleet.StateStarting},
		{"case and whitespace", "running", str("  Downloading "), nil, fleet.StateDownloading},
		{"paused flag wins", "running", str("downloading"), boolean(true), fleet.StatePaused},
		{"paused token", "running", str("paused"), nil, fleet.StatePaused},
		{"unknown token running", "running", str("verifying"), nil, fleet.StateStarting},
		{"unknown token stopped", "exited", str("verifying"), nil, fleet.StateUnreachable},
		{"absent token running", "running", nil, nil, fleet.StateStarting},
		{"absent token stopped", "created", nil, nil, fleet.StateUnreachable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := backend.Container{ID: "w", Name: "w", State: tc.runState}
			view := fleet.Normalize(c, backend.Ok(&backend.Status{State: tc.token, Paused: tc.paused}))
			if view.Lifecycle != tc.want {
				t.Fatalf("got %s want %s", view.Lifecycle, tc.want)
			}
			if (view.Lifecycle == fleet.StatePaused) != view.UserPaused {
				t.Fatalf("paused invariant broken: %+v", view)
			}
		})
	}
}

func TestNormalizeAbsentAndNegativeNumerics(t *testing.T) {
	status := &backend.Status{
		State:          str("downloading"),
		DownloadSpeed:  f64(-10),
		Downloaded:     f64(2048),
		TotalSize:      f64(1024),
		ConnectedPeers: f64(3),
	}
	view := fleet.Normalize(running("n", "n"), backend.Ok(status))
	if view.DownloadRate != 0 || view.UploadRate != 0 {
		t.Fatalf("expected non-negative rates, got %+v", view)
	}
	if view.BytesDownloaded != 1024 {
		t.Fatalf("expected downloaded clamped to total, got %d", view.BytesDownloaded)
	}
	if view.ConnectedPeers != 3 || view.TotalPeers != 0 {
		t.Fatalf("unexpected peers %d/%d", view.ConnectedPeers, view.TotalPeers)
	}
	if view.ETA.Known {
		t.Fatalf("absent eta must be unknown, got %+v", view.ETA)
	}
}

func TestNormalizeReachableErrorPayload(t *testing.T) {
	status := &backend.Status{State: str("starting"), Error: str("Client not ready")}
	view := fleet.Normalize(running("s", "s"), backend.Ok(status))
	if view.Degraded {
		t.Fatal("a decoded payload is not a failed fetch")
	}
	if view.Lifecycle != fleet.StateStarting || view.Detail != "Client not ready" {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestNormalizeAllKeepsListingOrder(t *testing.T) {
	containers := []backend.Container{running("z", "z"), running("a", "a"), running("m", "m")}
	results := []backend.StatusResult{
		backend.Ok(&backend.Status{State: str("seeding")}),
		backend.Failed(errors.New("boom")),
	}
	views := fleet.NormalizeAll(containers, results)
	if len(views) != 3 {
		t.Fatalf("expected 3 views, got %d", len(views))
	}
	for i, want := range []string{"z", "a", "m"} {
		if views[i].ID != want {
			t.Fatalf("view %d: got %s want %s", i, views[i].ID, want)
		}
	}
	if views[0].Lifecycle != fleet.StateSeeding || !views[1].Degraded || !views[2].Degraded {
		t.Fatalf("unexpected views %+v", views)
	}
}

func TestParseETA(t *testing.T) {
	cases := []struct {
		raw   string
		known bool
		want  time.Duration
	}{
		{"1h 5m", true, time.Hour + 5*time.Minute},
		{"3m 20s", true, 3*time.Minute + 20*time.Second},
		{"45s", true, 45 * time.Second},
		{"1h5m0s", true, time.Hour + 5*time.Minute},
		{"2d 3h", true, 51 * time.Hour},
		{"90", true, 90 * time.Second},
		{"∞", false, 0},
		{"", false, 0},
		{"soon", false, 0},
		{"-5s", false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got := fleet.ParseETA(tc.raw)
			if got.Known != tc.known || got.Duration != tc.want {
				t.Fatalf("ParseETA(%q) = %+v", tc.raw, got)
			}
		})
	}
}

func TestETAString(t *testing.T) {
	cases := map[time.Duration]string{
		time.Hour + 5*time.Minute:      "1h 5m",
		3*time.Minute + 20*time.Second: "3m 20s",
		45 * time.Second:               "45s",
		26*time.Hour + 30*time.Second:  "26h 0m",
		0:                              "0s",
	}
	for d, want := range cases {
		if got := fleet.KnownETA(d).String(); got != want {
			t.Errorf("ETA(%s) = %q want %q", d, got, want)
		}
	}
	if got := fleet.UnknownETA.String(); got != "unknown" {
		t.Fatalf("unknown eta rendered %q", got)
	}
}
