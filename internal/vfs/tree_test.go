package vfs

import (
	"errors"
	"testing"

	"github.com/codebench/codebench/pkg/models"
)

// buildTree creates /project/script.js, /project/lib/util.py and /README.md.
func buildTree(t *testing.T) *Tree {
	t.Helper()
	tr := New()
	steps := []struct {
		parent, name string
		kind         models.NodeKind
	}{
		{"/", "project", models.KindFolder},
		{"/project", "script.js", models.KindFile},
		{"/project", "lib", models.KindFolder},
		{"/project/lib", "util.py", models.KindFile},
		{"/", "README.md", models.KindFile},
	}
	for _, s := range steps {
		next, _, err := tr.Create(s.parent, s.name, s.kind, "")
		if err != nil {
			t.Fatalf("Create(%s/%s): %v", s.parent, s.name, err)
		}
		tr = next
	}
	return tr
}

func TestCreateAndReadBack(t *testing.T) {
	tr := New()
	tr, created, err := tr.Create("/", "main.go", models.KindFile, "package main\n")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := tr.Read("/main.go")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.ID != created.ID || got.Name != "main.go" || got.Kind != models.KindFile {
		t.Errorf("read back = %+v, want id %s name main.go", got, created.ID)
	}
	if got.Content != "package main\n" {
		t.Errorf("content = %q", got.Content)
	}
	if got.Language != "go" {
		t.Errorf("language = %q, want go", got.Language)
	}
}

func TestCreateErrors(t *testing.T) {
	tr := buildTree(t)

	tests := []struct {
		name    string
		parent  string
		child   string
		wantErr error
	}{
		{"empty name", "/", "", ErrInvalidName},
		{"separator in name", "/", "a/b", ErrInvalidName},
		{"duplicate sibling", "/project", "script.js", ErrDuplicateName},
		{"missing parent", "/nope", "x.txt", ErrParentNotFound},
		{"file as parent", "/README.md", "x.txt", ErrParentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tr.Len()
			_, _, err := tr.Create(tt.parent, tt.child, models.KindFile, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create = %v, want %v", err, tt.wantErr)
			}
			if tr.Len() != before {
				t.Errorf("failed create mutated the snapshot")
			}
		})
	}
}

func TestWriteContent(t *testing.T) {
	tr := buildTree(t)

	tr2, n, err := tr.WriteContent("/project/script.js", "let x = 1;")
	if err != nil {
		t.Fatalf("WriteContent: %v", err)
	}
	if n.Content != "let x = 1;" {
		t.Errorf("content = %q", n.Content)
	}

	// The previous snapshot must be untouched.
	old, _ := tr.Read("/project/script.js")
	if old.Content != "" {
		t.Errorf("old snapshot content = %q, want empty", old.Content)
	}
	if _, _, err := tr2.WriteContent("/project", "x"); !errors.Is(err, ErrWrongKind) {
		t.Errorf("WriteContent on folder = %v, want ErrWrongKind", err)
	}
	if _, _, err := tr2.WriteContent("/ghost", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("WriteContent on missing path = %v, want ErrNotFound", err)
	}
}

func TestRenameRecomputesLanguage(t *testing.T) {
	tests := []struct {
		newName string
		want    string
	}{
		{"a.py", "python"},
		{"a.ts", "typescript"},
		{"a.unknownext", "plaintext"},
	}

	for _, tt := range tests {
		tr := New()
		tr, _, err := tr.Create("/", "a.js", models.KindFile, "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		tr, n, err := tr.Rename("/a.js", tt.newName)
		if err != nil {
			t.Fatalf("Rename to %s: %v", tt.newName, err)
		}
		if n.Language != tt.want {
			t.Errorf("Rename to %s: language = %q, want %q", tt.newName, n.Language, tt.want)
		}
		if _, err := tr.Read("/" + tt.newName); err != nil {
			t.Errorf("renamed node not resolvable at new path: %v", err)
		}
	}
}

func TestRenameCollision(t *testing.T) {
	tr := buildTree(t)
	if _, _, err := tr.Rename("/project/script.js", "lib"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Rename collision = %v, want ErrDuplicateName", err)
	}
	// Renaming to its own current name is not a collision.
	if _, _, err := tr.Rename("/project/script.js", "script.js"); err != nil {
		t.Errorf("Rename to same name = %v, want nil", err)
	}
}

func TestRenameUpdatesDescendantPaths(t *testing.T) {
	tr := buildTree(t)
	tr, _, err := tr.Rename("/project", "app")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := tr.Read("/app/lib/util.py"); err != nil {
		t.Errorf("descendant not reachable under renamed folder: %v", err)
	}
	if _, err := tr.Read("/project/lib/util.py"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old path still resolves after rename")
	}
}

func TestMove(t *testing.T) {
	tr := buildTree(t)

	tr2, n, err := tr.Move("/project/script.js", "/project/lib")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if n.Path != "/project/lib/script.js" {
		t.Errorf("moved path = %q", n.Path)
	}
	if _, err := tr2.Read("/project/script.js"); !errors.Is(err, ErrNotFound) {
		t.Errorf("node still at old path after move")
	}

	if _, _, err := tr.Move("/project", "/project/lib"); !errors.Is(err, ErrCyclicMove) {
		t.Errorf("Move into own subtree = %v, want ErrCyclicMove", err)
	}
	if _, _, err := tr.Move("/project", "/project"); !errors.Is(err, ErrCyclicMove) {
		t.Errorf("Move into itself = %v, want ErrCyclicMove", err)
	}
}

func TestDeleteFolderIsRecursiveAndAtomic(t *testing.T) {
	tr := buildTree(t)
	before := tr.Len()

	tr2, err := tr.Delete("/project")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// /project, script.js, lib, util.py: four nodes gone in one transition.
	if got := tr2.Len(); got != before-4 {
		t.Errorf("Len after delete = %d, want %d", got, before-4)
	}
	for _, p := range []string{"/project", "/project/script.js", "/project/lib", "/project/lib/util.py"} {
		if _, err := tr2.Resolve(p); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%s) after delete = %v, want ErrNotFound", p, err)
		}
	}
	// Old snapshot still intact.
	if _, err := tr.Read("/project/lib/util.py"); err != nil {
		t.Errorf("old snapshot lost a node: %v", err)
	}
}

func TestDeleteRoot(t *testing.T) {
	tr := New()
	if _, err := tr.Delete("/"); !errors.Is(err, ErrCannotDeleteRoot) {
		t.Errorf("Delete(/) = %v, want ErrCannotDeleteRoot", err)
	}
}

func TestListChildren(t *testing.T) {
	tr := buildTree(t)
	kids, err := tr.ListChildren("/project")
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	// Insertion order is display order.
	want := []string{"script.js", "lib"}
	if len(kids) != len(want) {
		t.Fatalf("children = %d, want %d", len(kids), len(want))
	}
	for i, k := range kids {
		if k.Name != want[i] {
			t.Errorf("child[%d] = %s, want %s", i, k.Name, want[i])
		}
	}

	if _, err := tr.ListChildren("/README.md"); !errors.Is(err, ErrWrongKind) {
		t.Errorf("ListChildren on file = %v, want ErrWrongKind", err)
	}
	if _, err := tr.ListChildren("/ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListChildren on missing = %v, want ErrNotFound", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	tr := buildTree(t)
	tr, _, err := tr.WriteContent("/project/script.js", "console.log(1);")
	if err != nil {
		t.Fatalf("WriteContent: %v", err)
	}

	rebuilt, err := Import(tr.Export())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if rebuilt.Len() != tr.Len() {
		t.Fatalf("rebuilt Len = %d, want %d", rebuilt.Len(), tr.Len())
	}
	n, err := rebuilt.Read("/project/script.js")
	if err != nil {
		t.Fatalf("Read after import: %v", err)
	}
	if n.Content != "console.log(1);" || n.Language != "javascript" {
		t.Errorf("imported node = %+v", n)
	}
}

func TestSeed(t *testing.T) {
	tr := Seed()
	for _, p := range []string{"/src", "/src/main.py", "/README.md"} {
		if _, err := tr.Resolve(p); err != nil {
			t.Errorf("seed missing %s: %v", p, err)
		}
	}
}
