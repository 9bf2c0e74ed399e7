package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/flock"

	"fleetdeck/internal/control"
	"fleetdeck/internal/fleet"
	"fleetdeck/internal/logging"
	"fleetdeck/internal/reconcile"
)

const (
	streamPath      = "/api/fleet/stream"
	defaultLogTail  = 100
	shutdownTimeout = 5 * time.Second
)

// Fleet is the reconciliation loop as seen by the dashboard.
type Fleet interface {
	Snapshot() fleet.Snapshot
	Subscribe() *reconcile.Subscription
	Refresh()
}

// LogReader fetches a worker's recent output.
type LogReader interface {
	Logs(ctx context.Context, id string, tail int) (string, error)
}

// Options configures a Server.
type Options struct {
	Bind     string
	Token    string
	LockPath string
	LogTail  int
	Logger   *slog.Logger
}

// Server is the local dashboard HTTP server.
type Server struct {
	opts      Options
	fleet     Fleet
	commander control.Commander
	logs      LogReader
	logger    *slog.Logger
	router    chi.Router

	mu       sync.Mutex
	lock     *flock.Flock
	listener net.Listener
	server   *http.Server
}

// New builds a server over the loop, the backend command endpoint, and the
// backend log endpoint.
func New(opts Options, fl Fleet, commander control.Commander, logs LogReader) (*Server, error) {
	if fl == nil {
		return nil, errors.New("dashboard: fleet is required")
	}
	if opts.LogTail <= 0 {
		opts.LogTail = defaultLogTail
	}
	s := &Server{
		opts:      opts,
		fleet:     fl,
		commander: commander,
		logs:      logs,
		logger:    logging.NewComponentLogger(opts.Logger, "dashboard"),
	}
	if strings.TrimSpace(opts.LockPath) != "" {
		s.lock = flock.New(opts.LockPath)
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(originMiddleware)
	r.Use(authMiddleware(s.opts.Token))

	r.Get("/health", s.handleHealth)
	r.Get("/api/fleet", s.handleFleet)
	r.Get(streamPath, s.handleStream)
	r.Post("/api/workers/{id}/{command}", s.handleCommand)
	r.Get("/api/workers/{id}/logs", s.handleLogs)
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start takes the single-instance lock and begins serving. The server shuts
// down when ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("dashboard already running")
	}

	if s.lock != nil {
		ok, err := s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("another fleetdeck dashboard is already running (lock %s)", s.opts.LockPath)
		}
	}

	listener, err := net.Listen("tcp", s.opts.Bind)
	if err != nil {
		s.unlock()
		return fmt.Errorf("dashboard listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	server := s.server

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("dashboard server error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "dashboard_serve_failed"),
			)
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("dashboard listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and releases the lock.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.server = nil
	s.listener = nil
	s.unlock()
}

func (s *Server) unlock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
