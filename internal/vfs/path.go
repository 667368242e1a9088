package vfs

import (
	"strings"

	"github.com/codebench/codebench/pkg/models"
)

// Resolve walks the tree from the root, matching path segments against child
// names (case-sensitive, exact). It returns ErrNotFound if any segment is
// missing or a non-final segment is not a folder.
func (t *Tree) Resolve(path string) (string, error) {
	if !strings.HasPrefix(path, Separator) {
		return "", ErrNotFound
	}
	cur := t.root
	for _, seg := range strings.Split(path, Separator) {
		if seg == "" {
			continue
		}
		if t.nodes[cur].kind != models.KindFolder {
			return "", ErrNotFound
		}
		next, ok := t.childByName(cur, seg)
		if !ok {
			return "", ErrNotFound
		}
		cur = next
	}
	return cur, nil
}

// ComputePath derives a node's absolute path by walking parent links up to the
// root. The root's path is "/".
func (t *Tree) ComputePath(id string) string {
	if id == t.root {
		return Separator
	}
	var segs []string
	for cur := id; cur != t.root; cur = t.nodes[cur].parent {
		segs = append(segs, t.nodes[cur].name)
	}
	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		b.WriteString(Separator)
		b.WriteString(segs[i])
	}
	return b.String()
}

// JoinPath builds a child path from a parent path and a name.
func JoinPath(parentPath, name string) string {
	if parentPath == Separator {
		return Separator + name
	}
	return parentPath + Separator + name
}
