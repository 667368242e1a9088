package terminal

import (
	"context"
	"strings"
	"testing"

	"github.com/codebench/codebench/internal/vfs"
	"github.com/codebench/codebench/internal/workspace"
	"github.com/codebench/codebench/pkg/models"
)

func newInterp(t *testing.T) (*Interpreter, *workspace.Workspace) {
	t.Helper()
	ws := workspace.New(vfs.Seed(), nil, nil)
	return NewInterpreter(ws), ws
}

func TestEvalBuiltins(t *testing.T) {
	interp, _ := newInterp(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		command    string
		workingDir string
		wantStatus models.ExitStatus
		wantOutput string // exact match unless empty
	}{
		{"pwd", "pwd", "/src", models.StatusSuccess, "/src"},
		{"echo", "echo hello world", "/", models.StatusSuccess, "hello world"},
		{"echo empty", "echo", "/", models.StatusSuccess, ""},
		{"whoami", "whoami", "/", models.StatusSuccess, "developer"},
		{"cat file", "cat /src/app.js", "/", models.StatusSuccess, "console.log(\"Hello from JavaScript\");\n"},
		{"cat relative", "cat app.js", "/src", models.StatusSuccess, "console.log(\"Hello from JavaScript\");\n"},
		{"cat folder", "cat /src", "/", models.StatusFailure, "cat: /src: Is a directory"},
		{"cat missing", "cat nope.txt", "/", models.StatusFailure, "cat: nope.txt: No such file or directory"},
		{"unknown", "npm install", "/", models.StatusFailure, "bash: npm: command not found"},
		{"clear", "clear", "/", models.StatusSuccess, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := interp.Eval(ctx, tt.command, tt.workingDir)
			if got.Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s (output %q)", got.Status, tt.wantStatus, got.Output)
			}
			if got.Output != tt.wantOutput {
				t.Errorf("output = %q, want %q", got.Output, tt.wantOutput)
			}
		})
	}
}

func TestEvalLs(t *testing.T) {
	interp, _ := newInterp(t)
	got := interp.Eval(context.Background(), "ls", "/")
	if got.Status != models.StatusSuccess {
		t.Fatalf("ls failed: %q", got.Output)
	}
	for _, want := range []string{"src/", "docs/", "README.md"} {
		if !strings.Contains(got.Output, want) {
			t.Errorf("ls output missing %q:\n%s", want, got.Output)
		}
	}

	got = interp.Eval(context.Background(), "ls /nope", "/")
	if got.Status != models.StatusFailure {
		t.Error("ls on missing path should fail")
	}
}

func TestEvalCd(t *testing.T) {
	interp, _ := newInterp(t)
	ctx := context.Background()

	got := interp.Eval(ctx, "cd src", "/")
	if got.Status != models.StatusSuccess || got.WorkingDir != "/src" {
		t.Errorf("cd src = %+v", got)
	}
	got = interp.Eval(ctx, "cd ..", "/src")
	if got.WorkingDir != "/" {
		t.Errorf("cd .. from /src = %q, want /", got.WorkingDir)
	}
	got = interp.Eval(ctx, "cd", "/src")
	if got.WorkingDir != "/" {
		t.Errorf("bare cd = %q, want /", got.WorkingDir)
	}
	got = interp.Eval(ctx, "cd /src/main.py", "/")
	if got.Status != models.StatusFailure || !strings.Contains(got.Output, "not a directory") {
		t.Errorf("cd to file = %+v", got)
	}
}

func TestEvalMutatingCommands(t *testing.T) {
	interp, ws := newInterp(t)
	ctx := context.Background()

	if got := interp.Eval(ctx, "mkdir build", "/"); got.Status != models.StatusSuccess {
		t.Fatalf("mkdir: %q", got.Output)
	}
	if _, err := ws.Read("/build"); err != nil {
		t.Fatalf("mkdir did not create folder: %v", err)
	}

	if got := interp.Eval(ctx, "touch out.txt", "/build"); got.Status != models.StatusSuccess {
		t.Fatalf("touch: %q", got.Output)
	}
	if n, err := ws.Read("/build/out.txt"); err != nil || n.Kind != models.KindFile {
		t.Fatalf("touch did not create file: %v", err)
	}
	// touch on an existing file is a no-op success.
	if got := interp.Eval(ctx, "touch out.txt", "/build"); got.Status != models.StatusSuccess {
		t.Errorf("touch existing: %q", got.Output)
	}

	if got := interp.Eval(ctx, "mkdir build", "/"); got.Status != models.StatusFailure ||
		!strings.Contains(got.Output, "File exists") {
		t.Errorf("duplicate mkdir = %+v", got)
	}

	if got := interp.Eval(ctx, "rm -r build", "/"); got.Status != models.StatusSuccess {
		t.Fatalf("rm: %q", got.Output)
	}
	if _, err := ws.Read("/build"); err == nil {
		t.Error("rm left the folder behind")
	}

	if got := interp.Eval(ctx, "rm /", "/"); got.Status != models.StatusFailure {
		t.Error("rm / should fail")
	}
}
