// Package terminal implements the workspace terminal: a per-command state
// machine (Idle -> Running -> Success|Failure), a bounded command history and
// the recall cursor used for arrow-key navigation. Commands are evaluated as
// builtins against the virtual file tree; no real process is ever spawned.
package terminal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codebench/codebench/internal/events"
	"github.com/codebench/codebench/internal/logging"
	"github.com/codebench/codebench/internal/metrics"
	"github.com/codebench/codebench/internal/workspace"
	"github.com/codebench/codebench/pkg/models"
)

// DefaultHistoryLimit bounds the command history; the oldest record is
// evicted first.
const DefaultHistoryLimit = 50

// DefaultWorkingDir is the working directory of a fresh session: the
// workspace root.
const DefaultWorkingDir = "/"

var (
	// ErrBusy is returned when a command is submitted while another is
	// still running. Resubmit after the running command completes.
	ErrBusy = errors.New("a command is already running")
	// ErrNotRunning is returned by Complete when no command is in flight.
	ErrNotRunning = errors.New("no command is running")
)

// HistoryStore persists finished commands. Optional.
type HistoryStore interface {
	AppendCommand(ctx context.Context, rec *models.CommandRecord) error
	ClearHistory(ctx context.Context) error
}

// Session is one interactive terminal. Safe for concurrent use.
type Session struct {
	interp      *Interpreter
	broadcaster *events.Broadcaster
	store       HistoryStore
	limit       int

	mu         sync.Mutex
	workingDir string
	history    []*models.CommandRecord
	running    *models.CommandRecord
	recall     Navigator
}

// NewSession creates a terminal session over the workspace. broadcaster and
// store may be nil; limit <= 0 uses DefaultHistoryLimit.
func NewSession(ws *workspace.Workspace, broadcaster *events.Broadcaster, store HistoryStore, limit int) *Session {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Session{
		interp:      NewInterpreter(ws),
		broadcaster: broadcaster,
		store:       store,
		limit:       limit,
		workingDir:  DefaultWorkingDir,
	}
}

// WorkingDirectory returns the session's current working directory.
func (s *Session) WorkingDirectory() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workingDir
}

// Submit starts a command. Whitespace-only input is a no-op and returns a nil
// record. Submitting while a command is running fails with ErrBusy.
func (s *Session) Submit(commandText string) (*models.CommandRecord, error) {
	text := strings.TrimSpace(commandText)
	if text == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != nil {
		return nil, ErrBusy
	}
	rec := &models.CommandRecord{
		ID:               uuid.NewString(),
		Command:          text,
		ExitStatus:       models.StatusRunning,
		WorkingDirectory: s.workingDir,
		StartedAt:        time.Now().UTC(),
	}
	s.running = rec
	s.recall.Push(text)
	out := *rec
	return &out, nil
}

// Complete finalizes the in-flight command, appends it to history (evicting
// the oldest record past the cap) and returns the session to idle. The
// working directory moves to newWorkingDir only on success.
func (s *Session) Complete(output string, status models.ExitStatus, newWorkingDir string) (*models.CommandRecord, error) {
	s.mu.Lock()
	rec := s.running
	if rec == nil {
		s.mu.Unlock()
		return nil, ErrNotRunning
	}
	rec.Output = output
	rec.ExitStatus = status
	rec.DurationMs = time.Since(rec.StartedAt).Milliseconds()
	s.running = nil

	s.history = append(s.history, rec)
	if len(s.history) > s.limit {
		s.history = s.history[len(s.history)-s.limit:]
	}
	if status == models.StatusSuccess && newWorkingDir != "" {
		s.workingDir = newWorkingDir
	}
	out := *rec
	s.mu.Unlock()

	metrics.RecordTerminalCommand(string(status))
	if s.broadcaster != nil {
		s.broadcaster.Publish(events.Event{Type: events.EventCommand, CommandID: out.ID})
	}
	if s.store != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.store.AppendCommand(ctx, &out); err != nil {
				logging.Error("persist terminal command", zap.Error(err))
			}
		}()
	}
	return &out, nil
}

// Run submits commandText, evaluates it against the workspace and completes
// the record in one step. A no-op submission returns a nil record. A
// successful clear wipes the history and recall log afterwards, so the clear
// itself never lingers in either.
func (s *Session) Run(ctx context.Context, commandText string) (*models.CommandRecord, error) {
	rec, err := s.Submit(commandText)
	if err != nil || rec == nil {
		return nil, err
	}
	result := s.interp.Eval(ctx, rec.Command, rec.WorkingDirectory)
	done, err := s.Complete(result.Output, result.Status, result.WorkingDir)
	if err == nil && done.ExitStatus == models.StatusSuccess &&
		strings.Fields(done.Command)[0] == "clear" {
		s.Clear()
	}
	return done, err
}

// Restore seeds the history from persisted records, oldest first. Meant for
// startup; existing history is replaced and the recall log is rebuilt.
func (s *Session) Restore(records []models.CommandRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.recall.Clear()
	start := 0
	if len(records) > s.limit {
		start = len(records) - s.limit
	}
	for i := start; i < len(records); i++ {
		rec := records[i]
		s.history = append(s.history, &rec)
		s.recall.Push(rec.Command)
	}
}

// History returns the completed records, oldest first.
func (s *Session) History() []models.CommandRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CommandRecord, len(s.history))
	for i, r := range s.history {
		out[i] = *r
	}
	return out
}

// Clear empties the history and the recall log. The working directory is
// kept.
func (s *Session) Clear() {
	s.mu.Lock()
	s.history = nil
	s.recall.Clear()
	s.mu.Unlock()

	if s.store != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.store.ClearHistory(ctx); err != nil {
				logging.Error("clear persisted history", zap.Error(err))
			}
		}()
	}
}

// RecallPrevious moves the recall cursor one step back and returns the
// recalled command text, clamped at the oldest entry.
func (s *Session) RecallPrevious() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recall.Previous()
}

// RecallNext moves the recall cursor one step forward. Past the newest entry
// the cursor clears and the empty draft is returned.
func (s *Session) RecallNext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recall.Next()
}
