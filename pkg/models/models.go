// Package models contains the value types shared by the server, the HTTP
// client and the CLI.
package models

import "time"

// NodeKind distinguishes files from folders.
type NodeKind string

const (
	KindFile   NodeKind = "file"
	KindFolder NodeKind = "folder"
)

// Node is the export form of a workspace tree node. Children are nested and
// kept in display order.
type Node struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Kind       NodeKind  `json:"kind"`
	Content    string    `json:"content,omitempty"`
	Language   string    `json:"language,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
	Children   []*Node   `json:"children,omitempty"`
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Kind == KindFolder
}

// ExitStatus is the lifecycle state of a terminal command.
type ExitStatus string

const (
	StatusRunning ExitStatus = "running"
	StatusSuccess ExitStatus = "success"
	StatusFailure ExitStatus = "failure"
)

// CommandRecord is one terminal command's lifecycle record. It is mutable only
// while the status is StatusRunning; once finalized it never changes.
type CommandRecord struct {
	ID               string     `json:"id"`
	Command          string     `json:"command"`
	Output           string     `json:"output"`
	ExitStatus       ExitStatus `json:"exit_status"`
	WorkingDirectory string     `json:"working_directory"`
	StartedAt        time.Time  `json:"started_at"`
	DurationMs       int64      `json:"duration_ms"`
}

// ActiveFile is the editor's view of the currently open file.
type ActiveFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Language    string    `json:"language"`
	Content     string    `json:"content"`
	Dirty       bool      `json:"dirty"`
	LastSavedAt time.Time `json:"last_saved_at"`
}
