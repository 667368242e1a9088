package vfs

import (
	"fmt"

	"github.com/codebench/codebench/pkg/models"
)

// export converts an arena node into its wire form. With deep set, folder
// children are included recursively in display order.
func (t *Tree) export(id string, deep bool) *models.Node {
	n := t.nodes[id]
	out := &models.Node{
		ID:         n.id,
		Name:       n.name,
		Path:       t.ComputePath(id),
		Kind:       n.kind,
		Content:    n.content,
		Language:   n.language,
		ModifiedAt: n.modifiedAt,
	}
	if n.kind == models.KindFolder && deep {
		out.Children = make([]*models.Node, 0, len(n.children))
		for _, cid := range n.children {
			out.Children = append(out.Children, t.export(cid, true))
		}
	}
	return out
}

// Export returns the full tree in nested wire form, rooted at "/".
func (t *Tree) Export() *models.Node {
	return t.export(t.root, true)
}

// Import rebuilds a tree from its nested wire form, preserving node ids and
// child order. Sibling name collisions and blank ids indicate a corrupted
// snapshot and are rejected.
func Import(root *models.Node) (*Tree, error) {
	if root == nil || !root.IsFolder() {
		return nil, fmt.Errorf("import: root must be a folder")
	}
	t := &Tree{nodes: make(map[string]*node)}
	if err := t.importNode(root, ""); err != nil {
		return nil, err
	}
	t.root = root.ID
	return t, nil
}

func (t *Tree) importNode(src *models.Node, parentID string) error {
	if src.ID == "" {
		return fmt.Errorf("import: node %q has no id", src.Name)
	}
	if _, dup := t.nodes[src.ID]; dup {
		return fmt.Errorf("import: duplicate node id %s", src.ID)
	}
	n := &node{
		id:         src.ID,
		name:       src.Name,
		kind:       src.Kind,
		content:    src.Content,
		language:   src.Language,
		parent:     parentID,
		modifiedAt: src.ModifiedAt,
	}
	if n.kind == models.KindFile && n.language == "" {
		n.language = LanguageForName(n.name)
	}
	t.nodes[src.ID] = n
	seen := make(map[string]bool, len(src.Children))
	for _, child := range src.Children {
		if seen[child.Name] {
			return fmt.Errorf("import: duplicate sibling name %q under %q", child.Name, src.Name)
		}
		seen[child.Name] = true
		n.children = append(n.children, child.ID)
		if err := t.importNode(child, src.ID); err != nil {
			return err
		}
	}
	return nil
}

// Seed returns a tree populated with the starter project shown to a fresh
// workspace.
func Seed() *Tree {
	t := New()
	steps := []struct {
		parent, name string
		kind         models.NodeKind
		content      string
	}{
		{"/", "src", models.KindFolder, ""},
		{"/src", "main.py", models.KindFile, "# Welcome to CodeBench\nprint(\"Hello, world!\")\n"},
		{"/src", "app.js", models.KindFile, "console.log(\"Hello from JavaScript\");\n"},
		{"/", "docs", models.KindFolder, ""},
		{"/docs", "notes.md", models.KindFile, "# Notes\n"},
		{"/", "README.md", models.KindFile, "# My Project\n\nCreated with CodeBench.\n"},
	}
	for _, s := range steps {
		next, _, err := t.Create(s.parent, s.name, s.kind, s.content)
		if err != nil {
			// The seed is static; a failure here is a programming error.
			panic(fmt.Sprintf("vfs: seed workspace: %v", err))
		}
		t = next
	}
	return t
}
