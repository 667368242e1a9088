// Package api provides the HTTP server and handlers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/codebench/codebench/internal/auth"
	"github.com/codebench/codebench/internal/config"
	"github.com/codebench/codebench/internal/events"
	"github.com/codebench/codebench/internal/logging"
	"github.com/codebench/codebench/internal/metrics"
	"github.com/codebench/codebench/internal/session"
	"github.com/codebench/codebench/internal/storage"
	"github.com/codebench/codebench/internal/terminal"
	"github.com/codebench/codebench/internal/vfs"
	"github.com/codebench/codebench/internal/workspace"
	"github.com/codebench/codebench/pkg/protocol"
)

// Server is the HTTP server.
type Server struct {
	ws          *workspace.Workspace
	fileSession *session.Session
	term        *terminal.Session
	auth        *auth.Auth // nil when auth is disabled
	broadcaster *events.Broadcaster
	snapshots   storage.Backend // nil when snapshot archiving is disabled
	config      *config.Config
}

// NewServer creates a new server.
func NewServer(
	ws *workspace.Workspace,
	fileSession *session.Session,
	term *terminal.Session,
	authHandler *auth.Auth,
	broadcaster *events.Broadcaster,
	snapshots storage.Backend,
	cfg *config.Config,
) *Server {
	return &Server{
		ws:          ws,
		fileSession: fileSession,
		term:        term,
		auth:        authHandler,
		broadcaster: broadcaster,
		snapshots:   snapshots,
		config:      cfg,
	}
}

// Handler returns the HTTP handler with auth and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (no auth required)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.auth != nil {
		mux.HandleFunc("POST /api/v1/auth/token", s.auth.HandleLogin)
	}

	protected := http.NewServeMux()

	// Tree endpoints
	protected.HandleFunc("GET /api/v1/tree", s.handleTree)
	protected.HandleFunc("GET /api/v1/nodes/{path...}", s.handleReadNode)
	protected.HandleFunc("POST /api/v1/nodes", s.handleCreateNode)
	protected.HandleFunc("POST /api/v1/nodes/rename", s.handleRename)
	protected.HandleFunc("POST /api/v1/nodes/move", s.handleMove)
	protected.HandleFunc("DELETE /api/v1/nodes/{path...}", s.handleDelete)
	protected.HandleFunc("PUT /api/v1/content", s.handleWriteContent)

	// Search endpoints
	protected.HandleFunc("GET /api/v1/search", s.handleSearch)
	protected.HandleFunc("GET /api/v1/quickopen", s.handleQuickOpen)

	// File session endpoints
	protected.HandleFunc("POST /api/v1/session/open", s.handleSessionOpen)
	protected.HandleFunc("GET /api/v1/session", s.handleSessionActive)
	protected.HandleFunc("PUT /api/v1/session/content", s.handleSessionEdit)
	protected.HandleFunc("POST /api/v1/session/save", s.handleSessionSave)

	// Terminal endpoints
	protected.HandleFunc("POST /api/v1/terminal/execute", s.handleTerminalExecute)
	protected.HandleFunc("GET /api/v1/terminal/history", s.handleTerminalHistory)
	protected.HandleFunc("DELETE /api/v1/terminal/history", s.handleTerminalClear)
	protected.HandleFunc("POST /api/v1/terminal/recall/previous", s.handleRecallPrevious)
	protected.HandleFunc("POST /api/v1/terminal/recall/next", s.handleRecallNext)

	// SSE endpoint
	protected.HandleFunc("GET /api/v1/events", s.handleEvents)

	// Snapshot archive endpoints
	if s.snapshots != nil {
		protected.HandleFunc("POST /api/v1/snapshots", s.handleCreateSnapshot)
		protected.HandleFunc("GET /api/v1/snapshots", s.handleListSnapshots)
		protected.HandleFunc("POST /api/v1/snapshots/restore", s.handleRestoreSnapshot)
		protected.HandleFunc("DELETE /api/v1/snapshots/{key}", s.handleDeleteSnapshot)
	}

	if s.auth != nil {
		mux.Handle("/api/v1/", s.auth.Middleware(protected))
	} else {
		mux.Handle("/api/v1/", protected)
	}

	return metrics.Middleware(logging.Middleware(mux))
}

// ─── Health ─────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(protocol.HealthResponse{
		Status:    "ok",
		TreeNodes: s.ws.Snapshot().Len(),
		Version:   "1.0",
	})
}

// ─── SSE Events ─────────────────────────────────────────────────────────────

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.sendError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := events.MarshalEvent(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// sendTreeError maps tree and session errors to HTTP status codes.
func (s *Server) sendTreeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vfs.ErrNotFound), errors.Is(err, vfs.ErrParentNotFound):
		s.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, vfs.ErrDuplicateName):
		s.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, vfs.ErrInvalidName),
		errors.Is(err, vfs.ErrWrongKind),
		errors.Is(err, vfs.ErrCyclicMove),
		errors.Is(err, vfs.ErrCannotDeleteRoot):
		s.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, terminal.ErrBusy):
		s.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNoActiveFile):
		s.sendError(w, http.StatusNotFound, err.Error())
	default:
		s.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
