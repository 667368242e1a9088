// Package session tracks the editor's open file: in-memory edits, the dirty
// flag and the debounced auto-save policy. Saves go through the Store
// interface so the session works identically against the local workspace or a
// remote collaborator.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codebench/codebench/internal/events"
	"github.com/codebench/codebench/internal/logging"
	"github.com/codebench/codebench/internal/metrics"
	"github.com/codebench/codebench/internal/vfs"
	"github.com/codebench/codebench/pkg/models"
)

// DefaultAutoSaveDelay is the quiet period before an edit is auto-saved.
const DefaultAutoSaveDelay = 2 * time.Second

var (
	// ErrNoActiveFile is returned when no file is open.
	ErrNoActiveFile = errors.New("no active file")
	// ErrSaveFailed wraps a persistence failure. The in-memory edit is kept
	// and the save may be retried.
	ErrSaveFailed = errors.New("save failed")
)

// Store is the session's view of the file tree.
type Store interface {
	Read(path string) (*models.Node, error)
	WriteContent(path, content string) (*models.Node, error)
}

// Session is the file session for one editor. Safe for concurrent use.
type Session struct {
	store       Store
	delay       time.Duration
	broadcaster *events.Broadcaster

	mu         sync.Mutex
	file       *models.ActiveFile
	generation uint64 // bumped on every edit and open; invalidates stale timers
	timer      *time.Timer
	saving     bool
	queued     bool

	eventCh chan events.Event
	done    chan struct{}
}

// New creates a session. broadcaster may be nil; when set, the session
// refreshes the active file if it is mutated externally and closes it if it
// is deleted.
func New(store Store, delay time.Duration, broadcaster *events.Broadcaster) *Session {
	if delay <= 0 {
		delay = DefaultAutoSaveDelay
	}
	s := &Session{store: store, delay: delay, broadcaster: broadcaster, done: make(chan struct{})}
	if broadcaster != nil {
		s.eventCh = broadcaster.Subscribe()
		go s.watch()
	}
	return s
}

// Close stops the background watcher and any pending auto-save.
func (s *Session) Close() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	close(s.done)
	if s.broadcaster != nil {
		s.broadcaster.Unsubscribe(s.eventCh)
	}
}

// Open makes the file at path the active file. Any pending auto-save for the
// previously open file is cancelled; its unsaved edits are dropped by
// explicit user choice.
func (s *Session) Open(path string) (models.ActiveFile, error) {
	n, err := s.store.Read(path)
	if err != nil {
		return models.ActiveFile{}, err
	}
	if n.IsFolder() {
		return models.ActiveFile{}, vfs.ErrWrongKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.file = &models.ActiveFile{
		ID:          n.ID,
		Name:        n.Name,
		Path:        n.Path,
		Language:    n.Language,
		Content:     n.Content,
		LastSavedAt: n.ModifiedAt,
	}
	return *s.file, nil
}

// Active returns a snapshot of the active file state.
func (s *Session) Active() (models.ActiveFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return models.ActiveFile{}, ErrNoActiveFile
	}
	return *s.file, nil
}

// Edit replaces the in-memory content, marks the file dirty and (re)schedules
// the auto-save timer. Nothing is written through until the debounce window
// elapses or Save is called.
func (s *Session) Edit(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return ErrNoActiveFile
	}
	s.file.Content = content
	s.file.Dirty = true
	s.generation++
	gen := s.generation

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		s.autoSave(gen)
	})
	return nil
}

// autoSave fires when the debounce window elapses. A generation mismatch
// means a later edit or open superseded this timer; the callback is stale and
// discarded.
func (s *Session) autoSave(gen uint64) {
	s.mu.Lock()
	if s.file == nil || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.save("auto"); err != nil {
		logging.Warn("auto-save failed", zap.Error(err))
	}
}

// Save writes the in-memory content through immediately, cancelling any
// pending auto-save timer.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.save("manual")
}

// save performs one write-through. At most one save is in flight per session;
// a request arriving while one is outstanding is queued and re-validated
// against the latest in-memory content once the first completes.
func (s *Session) save(trigger string) error {
	s.mu.Lock()
	if s.file == nil {
		s.mu.Unlock()
		return ErrNoActiveFile
	}
	if !s.file.Dirty {
		s.mu.Unlock()
		return nil
	}
	if s.saving {
		s.queued = true
		s.mu.Unlock()
		return nil
	}
	s.saving = true
	id := s.file.ID
	path := s.file.Path
	content := s.file.Content
	gen := s.generation
	s.mu.Unlock()

	_, err := s.store.WriteContent(path, content)
	metrics.RecordSave(trigger, err)

	s.mu.Lock()
	s.saving = false
	if s.file == nil || s.file.ID != id {
		// The user navigated away while the save was in flight; the result
		// no longer applies to the active target.
		s.queued = false
		s.mu.Unlock()
		return err
	}
	if err != nil {
		// Dirty stays set, content is never rolled back. A save queued
		// behind this one still runs, against the latest content.
		requeue := s.queued && s.file.Dirty
		s.queued = false
		s.mu.Unlock()
		if requeue {
			return s.save(trigger)
		}
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if s.generation == gen {
		s.file.Dirty = false
	}
	s.file.LastSavedAt = time.Now().UTC()
	requeue := s.queued && s.file.Dirty
	s.queued = false
	s.mu.Unlock()

	if requeue {
		return s.save(trigger)
	}
	return nil
}

// watch refreshes the active file when the tree changes underneath it.
func (s *Session) watch() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.eventCh:
			if !ok {
				return
			}
			s.handleEvent(ev)
		}
	}
}

func (s *Session) handleEvent(ev events.Event) {
	s.mu.Lock()
	file := s.file
	busy := s.saving
	s.mu.Unlock()
	if file == nil {
		return
	}

	switch ev.Type {
	case events.EventDelete:
		if file.Path == ev.Path || hasPathPrefix(file.Path, ev.Path) {
			s.mu.Lock()
			if s.file != nil && s.file.ID == file.ID {
				s.file = nil
				s.generation++
			}
			s.mu.Unlock()
		}
	case events.EventRename, events.EventMove:
		// The open file was renamed or moved externally; follow it so the
		// next save targets the new path. Content and dirty state are kept.
		if ev.NodeID != file.ID {
			return
		}
		n, err := s.store.Read(ev.Path)
		if err != nil || n.ID != file.ID {
			return
		}
		s.mu.Lock()
		if s.file != nil && s.file.ID == n.ID {
			s.file.Path = n.Path
			s.file.Name = n.Name
			s.file.Language = n.Language
		}
		s.mu.Unlock()
	case events.EventModify:
		// Only pick up external modifications; local edits and our own save
		// echoes must not clobber unsaved content.
		if ev.NodeID != file.ID || file.Dirty || busy {
			return
		}
		n, err := s.store.Read(file.Path)
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.file != nil && s.file.ID == n.ID && !s.file.Dirty {
			s.file.Content = n.Content
			s.file.LastSavedAt = n.ModifiedAt
		}
		s.mu.Unlock()
	}
}

func hasPathPrefix(p, prefix string) bool {
	if prefix == vfs.Separator {
		return true
	}
	return len(p) > len(prefix) && p[:len(prefix)] == prefix && p[len(prefix)] == '/'
}
