package vfs

import (
	"testing"

	"github.com/codebench/codebench/pkg/models"
)

func TestSearchIncludesContainingFolders(t *testing.T) {
	tr := buildTree(t)

	got, err := tr.Search("script", "/")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// Depth-first: the project folder precedes its matching child.
	want := []string{"/project", "/project/script.js"}
	if len(got) != len(want) {
		t.Fatalf("results = %v, want paths %v", paths(got), want)
	}
	for i, n := range got {
		if n.Path != want[i] {
			t.Errorf("result[%d] = %s, want %s", i, n.Path, want[i])
		}
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	tr := buildTree(t)
	got, err := tr.Search("ReAdMe", "/")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Path != "/README.md" {
		t.Errorf("results = %v, want [/README.md]", paths(got))
	}
}

func TestSearchMatchingFolderKeepsChildren(t *testing.T) {
	tr := buildTree(t)
	got, err := tr.Search("lib", "/")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// lib matches by name; its non-matching child is kept, not pruned.
	want := []string{"/project", "/project/lib", "/project/lib/util.py"}
	if len(got) != len(want) {
		t.Fatalf("results = %v, want %v", paths(got), want)
	}
	for i, n := range got {
		if n.Path != want[i] {
			t.Errorf("result[%d] = %s, want %s", i, n.Path, want[i])
		}
	}
}

func TestSearchScopedToSubfolder(t *testing.T) {
	tr := buildTree(t)
	got, err := tr.Search("util", "/project")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{"/project/lib", "/project/lib/util.py"}
	if len(got) != len(want) {
		t.Fatalf("results = %v, want %v", paths(got), want)
	}
}

func TestSearchNoMatches(t *testing.T) {
	tr := buildTree(t)
	for _, q := range []string{"zzz", ""} {
		got, err := tr.Search(q, "/")
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(got) != 0 {
			t.Errorf("Search(%q) = %v, want empty", q, paths(got))
		}
	}
	if _, err := tr.Search("x", "/ghost"); err == nil {
		t.Error("Search from missing path should fail")
	}
}

func TestQuickOpen(t *testing.T) {
	tr := buildTree(t)
	got := tr.QuickOpen("utilpy", 5)
	if len(got) == 0 || got[0].Path != "/project/lib/util.py" {
		t.Errorf("QuickOpen(utilpy) = %v, want /project/lib/util.py first", paths(got))
	}

	got = tr.QuickOpen("script", 1)
	if len(got) != 1 {
		t.Errorf("QuickOpen limit not applied: %d results", len(got))
	}
	for _, n := range got {
		if n.Kind == models.KindFolder {
			t.Errorf("QuickOpen returned a folder: %s", n.Path)
		}
	}
}

func paths(nodes []*models.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Path
	}
	return out
}
