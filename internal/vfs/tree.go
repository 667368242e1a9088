// Package vfs implements the virtual file-system tree backing the workspace:
// an arena of nodes indexed by opaque id, with child lists holding ids and the
// parent relation stored as a back-reference id. Operations never mutate a
// snapshot in place; each returns a new *Tree sharing unchanged nodes with its
// predecessor.
package vfs

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codebench/codebench/pkg/models"
)

// Separator is the path separator. Paths are always absolute.
const Separator = "/"

type node struct {
	id         string
	name       string
	kind       models.NodeKind
	content    string
	language   string
	parent     string // empty for the root
	children   []string
	modifiedAt time.Time
}

// Tree is an immutable snapshot of the workspace file tree.
type Tree struct {
	nodes map[string]*node
	root  string
}

// New returns an empty tree containing only the root folder.
func New() *Tree {
	root := &node{
		id:         uuid.NewString(),
		name:       "",
		kind:       models.KindFolder,
		modifiedAt: time.Now().UTC(),
	}
	return &Tree{
		nodes: map[string]*node{root.id: root},
		root:  root.id,
	}
}

// Len returns the number of live nodes, root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// RootID returns the id of the root folder.
func (t *Tree) RootID() string {
	return t.root
}

// clone returns a shallow copy of the arena. Node values are shared; any node
// the caller intends to change must go through mutable.
func (t *Tree) clone() *Tree {
	nodes := make(map[string]*node, len(t.nodes))
	for id, n := range t.nodes {
		nodes[id] = n
	}
	return &Tree{nodes: nodes, root: t.root}
}

// mutable replaces the arena entry for id with a copy and returns the copy.
// Only valid on a cloned tree.
func (t *Tree) mutable(id string) *node {
	cp := *t.nodes[id]
	cp.children = append([]string(nil), cp.children...)
	t.nodes[id] = &cp
	return &cp
}

func validName(name string) bool {
	return name != "" && !strings.Contains(name, Separator)
}

func (t *Tree) childByName(folderID, name string) (string, bool) {
	for _, cid := range t.nodes[folderID].children {
		if t.nodes[cid].name == name {
			return cid, true
		}
	}
	return "", false
}

// Create adds a file or folder under parentPath and returns the new snapshot
// together with the created node. The new node is appended to the parent's
// child list, preserving insertion order.
func (t *Tree) Create(parentPath, name string, kind models.NodeKind, content string) (*Tree, *models.Node, error) {
	if !validName(name) {
		return nil, nil, ErrInvalidName
	}
	parentID, err := t.Resolve(parentPath)
	if err != nil || t.nodes[parentID].kind != models.KindFolder {
		return nil, nil, ErrParentNotFound
	}
	if _, exists := t.childByName(parentID, name); exists {
		return nil, nil, ErrDuplicateName
	}

	now := time.Now().UTC()
	n := &node{
		id:         uuid.NewString(),
		name:       name,
		kind:       kind,
		parent:     parentID,
		modifiedAt: now,
	}
	if kind == models.KindFile {
		n.content = content
		n.language = LanguageForName(name)
	}

	next := t.clone()
	next.nodes[n.id] = n
	parent := next.mutable(parentID)
	parent.children = append(parent.children, n.id)
	parent.modifiedAt = now
	return next, next.export(n.id, false), nil
}

// Read returns the node at path, with its full subtree for folders.
func (t *Tree) Read(path string) (*models.Node, error) {
	id, err := t.Resolve(path)
	if err != nil {
		return nil, err
	}
	return t.export(id, true), nil
}

// WriteContent replaces a file's content. Folders are rejected with
// ErrWrongKind.
func (t *Tree) WriteContent(path, content string) (*Tree, *models.Node, error) {
	id, err := t.Resolve(path)
	if err != nil {
		return nil, nil, err
	}
	if t.nodes[id].kind != models.KindFile {
		return nil, nil, ErrWrongKind
	}

	next := t.clone()
	n := next.mutable(id)
	n.content = content
	n.modifiedAt = time.Now().UTC()
	return next, next.export(id, false), nil
}

// Rename changes a node's name, recomputing the language for files from the
// new extension. Descendant paths follow automatically since paths are always
// derived from the live parent chain.
func (t *Tree) Rename(path, newName string) (*Tree, *models.Node, error) {
	if !validName(newName) {
		return nil, nil, ErrInvalidName
	}
	id, err := t.Resolve(path)
	if err != nil {
		return nil, nil, err
	}
	cur := t.nodes[id]
	if id == t.root {
		return nil, nil, ErrWrongKind
	}
	if sib, exists := t.childByName(cur.parent, newName); exists && sib != id {
		return nil, nil, ErrDuplicateName
	}

	next := t.clone()
	n := next.mutable(id)
	n.name = newName
	if n.kind == models.KindFile {
		n.language = LanguageForName(newName)
	}
	n.modifiedAt = time.Now().UTC()
	return next, next.export(id, false), nil
}

// Move reparents a node under newParentPath. Moving a folder into its own
// subtree fails with ErrCyclicMove.
func (t *Tree) Move(path, newParentPath string) (*Tree, *models.Node, error) {
	id, err := t.Resolve(path)
	if err != nil {
		return nil, nil, err
	}
	if id == t.root {
		return nil, nil, ErrWrongKind
	}
	parentID, err := t.Resolve(newParentPath)
	if err != nil || t.nodes[parentID].kind != models.KindFolder {
		return nil, nil, ErrParentNotFound
	}
	for anc := parentID; anc != ""; anc = t.nodes[anc].parent {
		if anc == id {
			return nil, nil, ErrCyclicMove
		}
	}
	if _, exists := t.childByName(parentID, t.nodes[id].name); exists {
		return nil, nil, ErrDuplicateName
	}

	now := time.Now().UTC()
	next := t.clone()
	oldParent := next.mutable(t.nodes[id].parent)
	oldParent.children = removeID(oldParent.children, id)
	oldParent.modifiedAt = now
	newParent := next.mutable(parentID)
	newParent.children = append(newParent.children, id)
	newParent.modifiedAt = now
	n := next.mutable(id)
	n.parent = parentID
	n.modifiedAt = now
	return next, next.export(id, false), nil
}

// Delete removes the node at path and all of its descendants in one snapshot
// transition. Node ids are never reused afterwards.
func (t *Tree) Delete(path string) (*Tree, error) {
	id, err := t.Resolve(path)
	if err != nil {
		return nil, err
	}
	if id == t.root {
		return nil, ErrCannotDeleteRoot
	}

	next := t.clone()
	parent := next.mutable(t.nodes[id].parent)
	parent.children = removeID(parent.children, id)
	parent.modifiedAt = time.Now().UTC()
	next.remove(id)
	return next, nil
}

func (t *Tree) remove(id string) {
	for _, cid := range t.nodes[id].children {
		t.remove(cid)
	}
	delete(t.nodes, id)
}

// ListChildren returns the direct children of a folder in display order.
func (t *Tree) ListChildren(path string) ([]*models.Node, error) {
	id, err := t.Resolve(path)
	if err != nil {
		return nil, err
	}
	n := t.nodes[id]
	if n.kind != models.KindFolder {
		return nil, ErrWrongKind
	}
	out := make([]*models.Node, 0, len(n.children))
	for _, cid := range n.children {
		out = append(out, t.export(cid, false))
	}
	return out, nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
