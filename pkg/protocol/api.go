// Package protocol defines the API request/response types.
package protocol

import (
	"time"

	"github.com/codebench/codebench/pkg/models"
)

// ErrorResponse is returned on API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details string `json:"details,omitempty"`
}

// LoginRequest is the body for POST /api/v1/auth/token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

// TreeResponse is returned by GET /api/v1/tree.
type TreeResponse struct {
	Root *models.Node `json:"root"`
}

// CreateNodeRequest is the body for POST /api/v1/nodes.
type CreateNodeRequest struct {
	ParentPath string          `json:"parent_path"`
	Name       string          `json:"name"`
	Kind       models.NodeKind `json:"kind"`
	Content    string          `json:"content,omitempty"`
}

// RenameRequest is the body for POST /api/v1/nodes/rename.
type RenameRequest struct {
	Path    string `json:"path"`
	NewName string `json:"new_name"`
}

// MoveRequest is the body for POST /api/v1/nodes/move.
type MoveRequest struct {
	Path          string `json:"path"`
	NewParentPath string `json:"new_parent_path"`
}

// WriteContentRequest is the body for PUT /api/v1/content.
type WriteContentRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// DeleteRequest is the body for POST /api/v1/nodes/delete.
type DeleteRequest struct {
	Path string `json:"path"`
}

// SearchResponse is returned by GET /api/v1/search.
type SearchResponse struct {
	Query   string         `json:"query"`
	From    string         `json:"from"`
	Results []*models.Node `json:"results"`
}

// QuickOpenResponse is returned by GET /api/v1/quickopen.
type QuickOpenResponse struct {
	Query   string         `json:"query"`
	Matches []*models.Node `json:"matches"`
}

// OpenFileRequest is the body for POST /api/v1/session/open.
type OpenFileRequest struct {
	Path string `json:"path"`
}

// EditRequest is the body for PUT /api/v1/session/content.
type EditRequest struct {
	Content string `json:"content"`
}

// ActiveFileResponse is returned by file session endpoints.
type ActiveFileResponse struct {
	File *models.ActiveFile `json:"file"`
}

// SaveResponse is returned by POST /api/v1/session/save.
type SaveResponse struct {
	Saved   bool      `json:"saved"`
	SavedAt time.Time `json:"saved_at"`
}

// ExecuteRequest is the body for POST /api/v1/terminal/execute.
type ExecuteRequest struct {
	Command string `json:"command"`
}

// ExecuteResponse is returned by POST /api/v1/terminal/execute.
// Record is null when the submitted command was empty.
type ExecuteResponse struct {
	Record           *models.CommandRecord `json:"record"`
	WorkingDirectory string                `json:"working_directory"`
}

// HistoryResponse is returned by GET /api/v1/terminal/history.
type HistoryResponse struct {
	Commands         []models.CommandRecord `json:"commands"`
	WorkingDirectory string                 `json:"working_directory"`
}

// RecallResponse is returned by POST /api/v1/terminal/recall/{direction}.
type RecallResponse struct {
	Command string `json:"command"`
}

// SSEEvent mirrors the event stream payload for client-side decoding.
type SSEEvent struct {
	Type      string `json:"type"`
	Path      string `json:"path"`
	NodeID    string `json:"node_id,omitempty"`
	CommandID string `json:"command_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// SnapshotResponse is returned by POST /api/v1/snapshots.
type SnapshotResponse struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotListResponse is returned by GET /api/v1/snapshots.
type SnapshotListResponse struct {
	Backend string   `json:"backend"`
	Keys    []string `json:"keys"`
}

// RestoreRequest is the body for POST /api/v1/snapshots/restore.
type RestoreRequest struct {
	Key string `json:"key"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	TreeNodes int    `json:"tree_nodes"`
	Version   string `json:"version,omitempty"`
}
