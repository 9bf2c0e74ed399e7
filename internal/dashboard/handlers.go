package dashboard

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"fleetdeck/internal/backend"
	"fleetdeck/internal/control"
	"fleetdeck/internal/logging"
)

const (
	streamWriteWait = 10 * time.Second
	maxLogTail      = 10000
)

var upgrader = websocket.Upgrader{
	CheckOrigin: sameOrigin,
}

type healthResponse struct {
	Status     string    `json:"status"`
	Sequence   uint64    `json:"sequence"`
	Workers    int       `json:"workers"`
	ObservedAt time.Time `json:"observed_at"`
}

type logsResponse struct {
	WorkerID string `json:"worker_id"`
	Tail     int    `json:"tail"`
	Logs     string `json:"logs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.fleet.Snapshot()
	status := "ok"
	if snap.ListingError != "" {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     status,
		Sequence:   snap.Sequence,
		Workers:    len(snap.Workers),
		ObservedAt: snap.ObservedAt,
	})
}

func (s *Server) handleFleet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.fleet.Snapshot())
}

// handleStream pushes one JSON snapshot per publish until either side closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	sub := s.fleet.Subscribe()
	defer sub.Close()

	// gorilla/websocket allows one concurrent writer.
	var writeMu sync.Mutex
	write := func(fn func() error) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return fn()
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType == websocket.TextMessage && string(message) == "PING" {
				pong := func() error { return conn.WriteMessage(websocket.TextMessage, []byte("PONG")) }
				if err := write(pong); err != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-sub.C():
			if !ok {
				_ = write(func() error {
					return conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "fleet loop stopped"))
				})
				return
			}
			if err := write(func() error { return conn.WriteJSON(snap) }); err != nil {
				s.logger.Debug("websocket write failed", logging.Error(err))
				return
			}
		}
	}
}

// handleCommand dispatches pause/resume/stop. Stop requires ?confirm=true;
// without it the request is refused with 409 and nothing is sent.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := control.ParseCommand(chi.URLParam(r, "command"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.commander == nil {
		writeError(w, http.StatusServiceUnavailable, "no backend configured")
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if view, ok := s.fleet.Snapshot().Worker(id); ok {
		id = view.ID
		if err := control.CheckPrecondition(view, cmd); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}

	confirmer := control.NeverConfirm
	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); confirmed {
		confirmer = control.AlwaysConfirm
	}
	dispatcher := control.NewDispatcher(s.commander, s.fleet, confirmer, s.opts.Logger)

	outcome, err := dispatcher.Send(r.Context(), id, cmd)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, outcome)
	case errors.Is(err, control.ErrNotConfirmed):
		writeError(w, http.StatusConflict, "stop requires confirm=true")
	case backend.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, control.ErrCommandFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeError(w, http.StatusServiceUnavailable, "no backend configured")
		return
	}
	tail := s.opts.LogTail
	if raw := strings.TrimSpace(r.URL.Query().Get("tail")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxLogTail {
			writeError(w, http.StatusBadRequest, "tail must be between 1 and 10000")
			return
		}
		tail = parsed
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if view, ok := s.fleet.Snapshot().Worker(id); ok {
		id = view.ID
	}
	text, err := s.logs.Logs(r.Context(), id, tail)
	if err != nil {
		status := http.StatusBadGateway
		if backend.IsNotFound(err) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{WorkerID: id, Tail: tail, Logs: text})
}
