// Package workspace serializes access to the live file tree. All mutations
// funnel through one mutex, swap in the new immutable snapshot, publish a
// change event and mirror the result to the persistence collaborator when one
// is configured. Readers always operate on a consistent snapshot.
package workspace

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codebench/codebench/internal/events"
	"github.com/codebench/codebench/internal/logging"
	"github.com/codebench/codebench/internal/metrics"
	"github.com/codebench/codebench/internal/vfs"
	"github.com/codebench/codebench/pkg/models"
)

// Persister mirrors workspace state to a durable store.
type Persister interface {
	SaveTree(ctx context.Context, root *models.Node) error
}

// Workspace owns the current tree snapshot.
type Workspace struct {
	mu          sync.RWMutex
	tree        *vfs.Tree
	broadcaster *events.Broadcaster
	persister   Persister
}

// New creates a workspace around an initial tree. broadcaster and persister
// may be nil.
func New(tree *vfs.Tree, broadcaster *events.Broadcaster, persister Persister) *Workspace {
	metrics.SetTreeSize(tree.Len())
	return &Workspace{tree: tree, broadcaster: broadcaster, persister: persister}
}

// Snapshot returns the current immutable tree snapshot.
func (w *Workspace) Snapshot() *vfs.Tree {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tree
}

// Export returns the full tree in nested wire form.
func (w *Workspace) Export() *models.Node {
	return w.Snapshot().Export()
}

// Replace swaps in a new tree wholesale (snapshot restore).
func (w *Workspace) Replace(tree *vfs.Tree) {
	w.mu.Lock()
	w.tree = tree
	w.mu.Unlock()
	w.afterMutation("restore", &models.Node{Path: vfs.Separator}, events.EventModify)
}

// Create adds a file or folder under parentPath.
func (w *Workspace) Create(parentPath, name string, kind models.NodeKind, content string) (*models.Node, error) {
	return w.mutate("create", events.EventCreate, func(t *vfs.Tree) (*vfs.Tree, *models.Node, error) {
		return t.Create(parentPath, name, kind, content)
	})
}

// WriteContent replaces a file's content.
func (w *Workspace) WriteContent(path, content string) (*models.Node, error) {
	return w.mutate("write", events.EventModify, func(t *vfs.Tree) (*vfs.Tree, *models.Node, error) {
		return t.WriteContent(path, content)
	})
}

// Rename changes a node's name.
func (w *Workspace) Rename(path, newName string) (*models.Node, error) {
	return w.mutate("rename", events.EventRename, func(t *vfs.Tree) (*vfs.Tree, *models.Node, error) {
		return t.Rename(path, newName)
	})
}

// Move reparents a node.
func (w *Workspace) Move(path, newParentPath string) (*models.Node, error) {
	return w.mutate("move", events.EventMove, func(t *vfs.Tree) (*vfs.Tree, *models.Node, error) {
		return t.Move(path, newParentPath)
	})
}

// Delete removes a node and its descendants.
func (w *Workspace) Delete(path string) error {
	w.mu.Lock()
	next, err := w.tree.Delete(path)
	if err == nil {
		w.tree = next
	}
	w.mu.Unlock()

	metrics.RecordTreeOp("delete", err)
	if err != nil {
		return err
	}
	w.afterMutation("delete", &models.Node{Path: path}, events.EventDelete)
	return nil
}

// Read returns the node at path with its subtree.
func (w *Workspace) Read(path string) (*models.Node, error) {
	n, err := w.Snapshot().Read(path)
	metrics.RecordTreeOp("read", err)
	return n, err
}

// ListChildren returns a folder's direct children in display order.
func (w *Workspace) ListChildren(path string) ([]*models.Node, error) {
	return w.Snapshot().ListChildren(path)
}

// Search performs a case-insensitive substring name search.
func (w *Workspace) Search(query, fromPath string) ([]*models.Node, error) {
	return w.Snapshot().Search(query, fromPath)
}

// QuickOpen fuzzy-matches file names.
func (w *Workspace) QuickOpen(query string, limit int) []*models.Node {
	return w.Snapshot().QuickOpen(query, limit)
}

func (w *Workspace) mutate(op, eventType string, fn func(*vfs.Tree) (*vfs.Tree, *models.Node, error)) (*models.Node, error) {
	w.mu.Lock()
	next, n, err := fn(w.tree)
	if err == nil {
		w.tree = next
	}
	w.mu.Unlock()

	metrics.RecordTreeOp(op, err)
	if err != nil {
		return nil, err
	}
	w.afterMutation(op, n, eventType)
	return n, nil
}

func (w *Workspace) afterMutation(op string, n *models.Node, eventType string) {
	metrics.SetTreeSize(w.Snapshot().Len())
	if w.broadcaster != nil {
		w.broadcaster.Publish(events.Event{Type: eventType, Path: n.Path, NodeID: n.ID})
	}
	if w.persister != nil {
		root := w.Export()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := w.persister.SaveTree(ctx, root); err != nil {
				logging.Error("persist workspace tree",
					zap.String("operation", op), zap.Error(err))
			}
		}()
	}
}
