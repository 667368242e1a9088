package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/codebench/codebench/internal/logging"
	"github.com/codebench/codebench/internal/session"
	"github.com/codebench/codebench/internal/vfs"
	"github.com/codebench/codebench/pkg/models"
	"github.com/codebench/codebench/pkg/protocol"
)

// ─── Tree ───────────────────────────────────────────────────────────────────

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, protocol.TreeResponse{Root: s.ws.Export()})
}

func (s *Server) handleReadNode(w http.ResponseWriter, r *http.Request) {
	path := "/" + r.PathValue("path")
	node, err := s.ws.Read(path)
	if err != nil {
		s.sendTreeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, node)
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateNodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Kind != models.KindFile && req.Kind != models.KindFolder {
		s.sendError(w, http.StatusBadRequest, "kind must be \"file\" or \"folder\"")
		return
	}
	node, err := s.ws.Create(req.ParentPath, req.Name, req.Kind, req.Content)
	if err != nil {
		s.sendTreeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, node)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req protocol.RenameRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	node, err := s.ws.Rename(req.Path, req.NewName)
	if err != nil {
		s.sendTreeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, node)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req protocol.MoveRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	node, err := s.ws.Move(req.Path, req.NewParentPath)
	if err != nil {
		s.sendTreeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, node)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := "/" + r.PathValue("path")
	if err := s.ws.Delete(path); err != nil {
		s.sendTreeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWriteContent(w http.ResponseWriter, r *http.Request) {
	var req protocol.WriteContentRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	node, err := s.ws.WriteContent(req.Path, req.Content)
	if err != nil {
		s.sendTreeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, node)
}

// ─── Search ─────────────────────────────────────────────────────────────────

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	from := r.URL.Query().Get("from")
	if from == "" {
		from = "/"
	}
	results, err := s.ws.Search(query, from)
	if err != nil {
		s.sendTreeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, protocol.SearchResponse{
		Query:   query,
		From:    from,
		Results: results,
	})
}

func (s *Server) handleQuickOpen(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.sendError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	s.sendJSON(w, http.StatusOK, protocol.QuickOpenResponse{
		Query:   query,
		Matches: s.ws.QuickOpen(query, limit),
	})
}

// ─── File session ───────────────────────────────────────────────────────────

func (s *Server) handleSessionOpen(w http.ResponseWriter, r *http.Request) {
	var req protocol.OpenFileRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	file, err := s.fileSession.Open(req.Path)
	if err != nil {
		s.sendTreeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, protocol.ActiveFileResponse{File: &file})
}

func (s *Server) handleSessionActive(w http.ResponseWriter, r *http.Request) {
	file, err := s.fileSession.Active()
	if err != nil {
		s.sendTreeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, protocol.ActiveFileResponse{File: &file})
}

func (s *Server) handleSessionEdit(w http.ResponseWriter, r *http.Request) {
	var req protocol.EditRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.fileSession.Edit(req.Content); err != nil {
		s.sendTreeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionSave(w http.ResponseWriter, r *http.Request) {
	if err := s.fileSession.Save(r.Context()); err != nil {
		if errors.Is(err, session.ErrSaveFailed) {
			s.sendError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.sendTreeError(w, err)
		return
	}
	file, err := s.fileSession.Active()
	if err != nil {
		s.sendTreeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, protocol.SaveResponse{
		Saved:   true,
		SavedAt: file.LastSavedAt,
	})
}

// ─── Terminal ───────────────────────────────────────────────────────────────

func (s *Server) handleTerminalExecute(w http.ResponseWriter, r *http.Request) {
	var req protocol.ExecuteRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	record, err := s.term.Run(r.Context(), req.Command)
	if err != nil {
		s.sendTreeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, protocol.ExecuteResponse{
		Record:           record,
		WorkingDirectory: s.term.WorkingDirectory(),
	})
}

func (s *Server) handleTerminalHistory(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, protocol.HistoryResponse{
		Commands:         s.term.History(),
		WorkingDirectory: s.term.WorkingDirectory(),
	})
}

func (s *Server) handleTerminalClear(w http.ResponseWriter, r *http.Request) {
	s.term.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecallPrevious(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, protocol.RecallResponse{Command: s.term.RecallPrevious()})
}

func (s *Server) handleRecallNext(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, protocol.RecallResponse{Command: s.term.RecallNext()})
}

// ─── Snapshot archive ───────────────────────────────────────────────────────

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	doc, err := json.Marshal(s.ws.Export())
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "marshal tree: "+err.Error())
		return
	}
	now := time.Now().UTC()
	key := "workspace-" + now.Format("20060102T150405Z") + ".json"
	if err := s.snapshots.PutObject(r.Context(), key, bytes.NewReader(doc), int64(len(doc))); err != nil {
		logging.Error("snapshot upload failed", zap.String("key", key), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "store snapshot: "+err.Error())
		return
	}
	logging.Info("snapshot created",
		zap.String("key", key),
		zap.String("backend", s.snapshots.Type()))
	s.sendJSON(w, http.StatusCreated, protocol.SnapshotResponse{Key: key, CreatedAt: now})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	keys, err := s.snapshots.ListKeys(r.Context())
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "list snapshots: "+err.Error())
		return
	}
	s.sendJSON(w, http.StatusOK, protocol.SnapshotListResponse{
		Backend: s.snapshots.Type(),
		Keys:    keys,
	})
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	var req protocol.RestoreRequest
	if err := decodeBody(r, &req); err != nil || req.Key == "" {
		s.sendError(w, http.StatusBadRequest, "snapshot key required")
		return
	}

	body, err := s.snapshots.GetObject(r.Context(), req.Key)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "snapshot not found: "+req.Key)
		return
	}
	defer body.Close()

	doc, err := io.ReadAll(body)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "read snapshot: "+err.Error())
		return
	}
	var root models.Node
	if err := json.Unmarshal(doc, &root); err != nil {
		s.sendError(w, http.StatusInternalServerError, "decode snapshot: "+err.Error())
		return
	}
	tree, err := vfs.Import(&root)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "import snapshot: "+err.Error())
		return
	}

	s.ws.Replace(tree)
	logging.Info("snapshot restored", zap.String("key", req.Key))
	s.sendJSON(w, http.StatusOK, protocol.TreeResponse{Root: s.ws.Export()})
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.snapshots.DeleteObject(r.Context(), key); err != nil {
		s.sendError(w, http.StatusNotFound, "snapshot not found: "+key)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
