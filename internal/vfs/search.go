package vfs

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/codebench/codebench/pkg/models"
)

// Search returns the nodes under fromPath whose names contain query
// (case-insensitive substring), in depth-first order with children in
// insertion order. A folder is included when its own name matches or when any
// descendant matches; a name-matching folder keeps its whole subtree in the
// results so the explorer never shows it as an empty shell.
func (t *Tree) Search(query, fromPath string) ([]*models.Node, error) {
	startID, err := t.Resolve(fromPath)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []*models.Node
	// The search origin itself is never part of the results; only its
	// descendants are considered.
	if t.nodes[startID].kind == models.KindFolder {
		for _, cid := range t.nodes[startID].children {
			t.searchNode(cid, q, false, &out)
		}
	}
	return out, nil
}

// searchNode reports whether the subtree rooted at id contributed any result.
// With forced set, every node in the subtree is included regardless of its
// own name.
func (t *Tree) searchNode(id string, query string, forced bool, out *[]*models.Node) bool {
	n := t.nodes[id]
	selfMatch := query != "" && strings.Contains(strings.ToLower(n.name), query)
	include := forced || selfMatch

	if n.kind != models.KindFolder {
		if include {
			*out = append(*out, t.export(id, false))
		}
		return include
	}

	// Reserve the folder's depth-first slot before visiting children; drop it
	// again if neither the folder nor any descendant matched.
	slot := len(*out)
	*out = append(*out, t.export(id, false))
	childHit := false
	for _, cid := range n.children {
		if t.searchNode(cid, query, forced || selfMatch, out) {
			childHit = true
		}
	}
	if include || childHit {
		return true
	}
	*out = append((*out)[:slot], (*out)[slot+1:]...)
	return false
}

// QuickOpen fuzzy-matches query against file names for the editor's
// quick-open palette, best matches first. Folders are excluded; limit <= 0
// means no limit.
func (t *Tree) QuickOpen(query string, limit int) []*models.Node {
	var ids []string
	var names []string
	t.walkFiles(t.root, &ids, &names)

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Sort(ranks)

	out := make([]*models.Node, 0, len(ranks))
	for _, r := range ranks {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, t.export(ids[r.OriginalIndex], false))
	}
	return out
}

func (t *Tree) walkFiles(id string, ids *[]string, names *[]string) {
	n := t.nodes[id]
	if n.kind == models.KindFile {
		*ids = append(*ids, id)
		*names = append(*names, n.name)
		return
	}
	for _, cid := range n.children {
		t.walkFiles(cid, ids, names)
	}
}
