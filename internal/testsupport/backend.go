package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"fleetdeck/internal/backend"
)

// FakeWorker is one container served by FakeBackend.
type FakeWorker struct {
	Container backend.Container
	// Status is returned from the status endpoint; nil answers 500.
	Status *backend.Status
	Logs   string
}

// Upload records one descriptor upload.
type Upload struct {
	Filename string
	Content  []byte
}

// Command records one lifecycle request.
type Command struct {
	WorkerID  string
	Action    string
	RequestID string
}

// FakeBackend is an in-memory stand-in for the container management API.
type FakeBackend struct {
	Server *httptest.Server

	mu          sync.Mutex
	workers     []FakeWorker
	listingFail bool
	commandFail bool
	commands    []Command
	uploads     []Upload
	creates     []backend.CreateRequest
	logTails    []int
}

// NewFakeBackend starts a fake backend serving workers and registers cleanup.
func NewFakeBackend(t testing.TB, workers ...FakeWorker) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{workers: append([]FakeWorker(nil), workers...)}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, backend.Health{Status: "healthy", Service: "fake-backend", Version: "test"})
	})
	r.Get("/api/containers", fb.handleList)
	r.Post("/api/containers", fb.handleCreate)
	r.Get("/api/containers/{id}/status", fb.handleStatus)
	r.Get("/api/containers/{id}/logs", fb.handleLogs)
	r.Post("/api/containers/{id}/{action}", fb.handleCommand)
	r.Post("/api/torrents/upload", fb.handleUpload)

	fb.Server = httptest.NewServer(r)
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the fake backend's base URL.
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// SetWorkers replaces the served fleet.
func (fb *FakeBackend) SetWorkers(workers ...FakeWorker) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.workers = append([]FakeWorker(nil), workers...)
}

// FailListing makes the listing endpoint answer 500.
func (fb *FakeBackend) FailListing(fail bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.listingFail = fail
}

// FailCommands makes every lifecycle request answer 500.
func (fb *FakeBackend) FailCommands(fail bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.commandFail = fail
}

// Commands returns the lifecycle requests received so far.
func (fb *FakeBackend) Commands() []Command {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]Command(nil), fb.commands...)
}

// Uploads returns the descriptor uploads received so far.
func (fb *FakeBackend) Uploads() []Upload {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]Upload(nil), fb.uploads...)
}

// Creates returns the create requests received so far.
func (fb *FakeBackend) Creates() []backend.CreateRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]backend.CreateRequest(nil), fb.creates...)
}

// LogTails returns the tail values requested from the logs endpoint.
func (fb *FakeBackend) LogTails() []int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]int(nil), fb.logTails...)
}

func (fb *FakeBackend) handleList(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.listingFail {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing unavailable"})
		return
	}
	containers := make([]backend.Container, 0, len(fb.workers))
	for _, worker := range fb.workers {
		containers = append(containers, worker.Container)
	}
	writeJSON(w, http.StatusOK, containers)
}

func (fb *FakeBackend) handleStatus(w http.ResponseWriter, r *http.Request) {
	worker, ok := fb.lookup(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No such container"})
		return
	}
	if worker.Status == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "status unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, worker.Status)
}

func (fb *FakeBackend) handleLogs(w http.ResponseWriter, r *http.Request) {
	worker, ok := fb.lookup(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No such container"})
		return
	}
	tail, _ := strconv.Atoi(r.URL.Query().Get("tail"))
	fb.mu.Lock()
	fb.logTails = append(fb.logTails, tail)
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"logs": worker.Logs})
}

func (fb *FakeBackend) handleCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	action := chi.URLParam(r, "action")
	switch action {
	case "pause", "resume", "stop":
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action"})
		return
	}

	fb.mu.Lock()
	fb.commands = append(fb.commands, Command{WorkerID: id, Action: action, RequestID: r.Header.Get("X-Request-ID")})
	fail := fb.commandFail
	fb.mu.Unlock()

	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "command rejected"})
		return
	}
	if _, ok := fb.lookup(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No such container"})
		return
	}
	fb.apply(id, action)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": action + " requested"})
}

func (fb *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file uploaded"})
		return
	}
	defer file.Close()
	if !strings.HasSuffix(header.Filename, ".torrent") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "File must be a .torrent file"})
		return
	}
	content, _ := io.ReadAll(file)

	fb.mu.Lock()
	fb.uploads = append(fb.uploads, Upload{Filename: header.Filename, Content: content})
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.UploadResponse{
		Success:  true,
		Filename: header.Filename,
		Size:     int64(len(content)),
		Path:     "/torrents/" + header.Filename,
	})
}

func (fb *FakeBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	fb.mu.Lock()
	fb.creates = append(fb.creates, req)
	id := "c" + strconv.Itoa(len(fb.creates)) + "0000000000000"
	paused := false
	fb.workers = append(fb.workers, FakeWorker{
		Container: backend.Container{ID: id, Name: req.ContainerName, State: "running"},
		Status:    &backend.Status{State: ptr("starting"), Paused: &paused},
	})
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.CreateResponse{
		Success:     true,
		ContainerID: id,
		Name:        req.ContainerName,
		Message:     "Container created and started successfully",
	})
}

func (fb *FakeBackend) lookup(id string) (FakeWorker, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, worker := range fb.workers {
		if worker.Container.ID == id {
			return worker, true
		}
	}
	return FakeWorker{}, false
}

// apply mimics the backend's side effects for a lifecycle request.
func (fb *FakeBackend) apply(id, action string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i := range fb.workers {
		worker := &fb.workers[i]
		if worker.Container.ID != id {
			continue
		}
		switch action {
		case "stop":
			fb.workers = append(fb.workers[:i], fb.workers[i+1:]...)
		case "pause", "resume":
			if worker.Status == nil {
				return
			}
			status := *worker.Status
			paused := action == "pause"
			status.Paused = &paused
			worker.Status = &status
		}
		return
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func ptr[T any](v T) *T { return &v }

// Running returns a running container row.
func Running(id, name string) backend.Container {
	return backend.Container{ID: id, Name: name, State: "running"}
}

// Downloading returns a status payload for a downloading worker.
func Downloading(name string, progress, rate float64) *backend.Status {
	return &backend.Status{
		TorrentName:   ptr(name),
		State:         ptr("downloading"),
		Paused:        ptr(false),
		Progress:      ptr(progress),
		DownloadSpeed: ptr(rate),
		UploadSpeed:   ptr(0.0),
		ETA:           ptr("3m 20s"),
	}
}

// Seeding returns a status payload for a seeding worker.
func Seeding(name string, uploadRate float64) *backend.Status {
	return &backend.Status{
		TorrentName:   ptr(name),
		State:         ptr("seeding"),
		Paused:        ptr(false),
		Progress:      ptr(100.0),
		DownloadSpeed: ptr(0.0),
		UploadSpeed:   ptr(uploadRate),
		ETA:           ptr("∞"),
	}
}
