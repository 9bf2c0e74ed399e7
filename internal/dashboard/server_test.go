package dashboard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fleetdeck/internal/backend"
	"fleetdeck/internal/control"
	"fleetdeck/internal/dashboard"
	"fleetdeck/internal/fleet"
	"fleetdeck/internal/reconcile"
	"fleetdeck/internal/testsupport"
)

type harness struct {
	fb     *testsupport.FakeBackend
	loop   *reconcile.Loop
	server *httptest.Server
}

func newHarness(t *testing.T, token string) *harness {
	t.Helper()

	fb := testsupport.NewFakeBackend(t,
		testsupport.FakeWorker{
			Container: testsupport.Running("aaaa1111", "downloader"),
			Status:    testsupport.Downloading("ubuntu.iso", 67, 5452595),
			Logs:      "piece 12 verified\n",
		},
		testsupport.FakeWorker{
			Container: testsupport.Running("bbbb2222", "seeder"),
			Status:    testsupport.Seeding("debian.iso", 2048),
		},
	)
	client, err := backend.NewClient(fb.URL(), backend.WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	loop := reconcile.New(client, reconcile.WithInterval(time.Hour))
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("loop Start error: %v", err)
	}
	t.Cleanup(loop.Stop)

	deadline := time.Now().Add(2 * time.Second)
	for loop.Snapshot().Sequence == 0 {
		if time.Now().After(deadline) {
			t.Fatal("loop never published")
		}
		time.Sleep(5 * time.Millisecond)
	}

	srv, err := dashboard.New(dashboard.Options{Token: token, LogTail: 50}, loop, client, client)
	if err != nil {
		t.Fatalf("dashboard.New error: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &harness{fb: fb, loop: loop, server: ts}
}

func (h *harness) do(t *testing.T, method, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestFleetEndpointServesSnapshot(t *testing.T) {
	h := newHarness(t, "")
	resp := h.do(t, http.MethodGet, "/api/fleet", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var snap fleet.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Workers) != 2 || snap.Workers[0].ID != "aaaa1111" {
		t.Fatalf("unexpected workers %+v", snap.Workers)
	}
	if snap.TotalDownloadRate != 5452595 || snap.AverageProgressPercent != 83.5 {
		t.Fatalf("unexpected summary %+v", snap.Summary)
	}
	if snap.Workers[1].Lifecycle != fleet.StateSeeding || snap.Workers[1].ETA.Known {
		t.Fatalf("unexpected seeder view %+v", snap.Workers[1])
	}
}

func TestTokenRequired(t *testing.T) {
	h := newHarness(t, "s3cret")
	if resp := h.do(t, http.MethodGet, "/api/fleet", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp := h.do(t, http.MethodGet, "/api/fleet", "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", resp.StatusCode)
	}
	if resp := h.do(t, http.MethodGet, "/health", "s3cret"); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestStopRequiresConfirmation(t *testing.T) {
	h := newHarness(t, "")

	resp := h.do(t, http.MethodPost, "/api/workers/aaaa1111/stop", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 without confirm, got %d", resp.StatusCode)
	}
	if cmds := h.fb.Commands(); len(cmds) != 0 {
		t.Fatalf("unconfirmed stop reached the backend: %+v", cmds)
	}

	resp = h.do(t, http.MethodPost, "/api/workers/downloader/stop?confirm=true", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with confirm, got %d", resp.StatusCode)
	}
	var outcome control.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	cmds := h.fb.Commands()
	if len(cmds) != 1 || cmds[0].WorkerID != "aaaa1111" || cmds[0].Action != "stop" {
		t.Fatalf("unexpected backend commands %+v", cmds)
	}
	if cmds[0].RequestID == "" || cmds[0].RequestID != outcome.RequestID {
		t.Fatalf("request id mismatch: backend %q outcome %q", cmds[0].RequestID, outcome.RequestID)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(h.loop.Snapshot().Workers) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("refresh after stop never converged")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCrossOriginCommandRejected(t *testing.T) {
	h := newHarness(t, "")

	post := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, h.server.URL+"/api/workers/aaaa1111/stop?confirm=true", nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("post stop: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	if resp := post("http://evil.example"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign origin, got %d", resp.StatusCode)
	}
	if cmds := h.fb.Commands(); len(cmds) != 0 {
		t.Fatalf("cross-origin stop reached the backend: %+v", cmds)
	}

	if resp := post(h.server.URL); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for same origin, got %d", resp.StatusCode)
	}
	if cmds := h.fb.Commands(); len(cmds) != 1 || cmds[0].Action != "stop" {
		t.Fatalf("unexpected backend commands %+v", cmds)
	}
}

func TestStreamRejectsForeignOrigin(t *testing.T) {
	h := newHarness(t, "")
	wsURL := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/api/fleet/stream"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		conn.Close()
		t.Fatal("expected dial from foreign origin to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 handshake response, got %+v", resp)
	}
}

func TestPauseSeedingWorkerRejected(t *testing.T) {
	h := newHarness(t, "")
	resp := h.do(t, http.MethodPost, "/api/workers/bbbb2222/pause", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if len(h.fb.Commands()) != 0 {
		t.Fatal("rejected pause reached the backend")
	}
}

func TestPauseConvergesAfterRefresh(t *testing.T) {
	h := newHarness(t, "")
	resp := h.do(t, http.MethodPost, "/api/workers/aaaa1111/pause", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		view, ok := h.loop.Snapshot().Worker("aaaa1111")
		if ok && view.Lifecycle == fleet.StatePaused {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("worker never shown paused: %+v", view)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t, "")
	if resp := h.do(t, http.MethodPost, "/api/workers/aaaa1111/restart", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLogsProxied(t *testing.T) {
	h := newHarness(t, "")
	resp := h.do(t, http.MethodGet, "/api/workers/downloader/logs?tail=20", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var payload struct {
		WorkerID string `json:"worker_id"`
		Logs     string `json:"logs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	if payload.WorkerID != "aaaa1111" || !strings.Contains(payload.Logs, "piece 12") {
		t.Fatalf("unexpected logs payload %+v", payload)
	}
	if tails := h.fb.LogTails(); len(tails) != 1 || tails[0] != 20 {
		t.Fatalf("unexpected tails %v", tails)
	}

	if resp := h.do(t, http.MethodGet, "/api/workers/downloader/logs?tail=0", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad tail, got %d", resp.StatusCode)
	}
	if resp := h.do(t, http.MethodGet, "/api/workers/missing/logs", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown worker, got %d", resp.StatusCode)
	}
}

func TestStreamDeliversSnapshots(t *testing.T) {
	h := newHarness(t, "tok")
	wsURL := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/api/fleet/stream?access_token=tok"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first fleet.Snapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first snapshot: %v", err)
	}
	if len(first.Workers) != 2 {
		t.Fatalf("unexpected first snapshot %+v", first)
	}

	h.fb.SetWorkers()
	h.loop.Refresh()

	var next fleet.Snapshot
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read next snapshot: %v", err)
	}
	if next.Sequence <= first.Sequence || len(next.Workers) != 0 {
		t.Fatalf("unexpected next snapshot %+v", next)
	}
}

func TestSingleInstanceLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "fleetdeck.lock")
	loop := reconcile.New(nil)

	first, err := dashboard.New(dashboard.Options{Bind: "127.0.0.1:0", LockPath: lockPath}, loop, nil, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start error: %v", err)
	}
	defer first.Stop()
	if first.Addr() == "" {
		t.Fatal("expected bound address")
	}

	second, err := dashboard.New(dashboard.Options{Bind: "127.0.0.1:0", LockPath: lockPath}, loop, nil, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail on the lock")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("expected lock released after Stop, got %v", err)
	}
	second.Stop()
}
