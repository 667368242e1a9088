package terminal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/codebench/codebench/internal/vfs"
	"github.com/codebench/codebench/internal/workspace"
	"github.com/codebench/codebench/pkg/models"
)

func newTestSession(t *testing.T, limit int) *Session {
	t.Helper()
	return NewSession(workspace.New(vfs.Seed(), nil, nil), nil, nil, limit)
}

func TestSubmitCompleteLifecycle(t *testing.T) {
	s := newTestSession(t, 0)

	rec, err := s.Submit("echo hi")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.ExitStatus != models.StatusRunning {
		t.Errorf("status after submit = %s, want running", rec.ExitStatus)
	}
	if rec.WorkingDirectory != DefaultWorkingDir {
		t.Errorf("working dir = %s", rec.WorkingDirectory)
	}

	done, err := s.Complete("hi", models.StatusSuccess, "")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.ExitStatus != models.StatusSuccess || done.Output != "hi" {
		t.Errorf("completed record = %+v", done)
	}
	if got := s.History(); len(got) != 1 || got[0].ID != rec.ID {
		t.Errorf("history = %v", got)
	}
}

func TestSubmitWhileRunningIsBusy(t *testing.T) {
	s := newTestSession(t, 0)

	if _, err := s.Submit("ls"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit("pwd"); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Submit = %v, want ErrBusy", err)
	}

	if _, err := s.Complete("", models.StatusSuccess, ""); err != nil {
		t.Fatal(err)
	}
	// The session is idle again after completion.
	if _, err := s.Submit("pwd"); err != nil {
		t.Errorf("Submit after complete = %v, want nil", err)
	}
}

func TestEmptySubmitIsNoop(t *testing.T) {
	s := newTestSession(t, 0)
	for _, text := range []string{"", "   ", "\t\n"} {
		rec, err := s.Submit(text)
		if err != nil || rec != nil {
			t.Errorf("Submit(%q) = %v, %v; want nil, nil", text, rec, err)
		}
	}
	if len(s.History()) != 0 {
		t.Error("no-op submissions reached history")
	}
}

func TestCompleteWithoutRunning(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Complete("", models.StatusSuccess, ""); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Complete = %v, want ErrNotRunning", err)
	}
}

func TestHistoryEvictionFIFO(t *testing.T) {
	const limit = 5
	s := newTestSession(t, limit)
	ctx := context.Background()

	for i := 0; i < limit+1; i++ {
		if _, err := s.Run(ctx, fmt.Sprintf("echo %d", i)); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}

	got := s.History()
	if len(got) != limit {
		t.Fatalf("history length = %d, want %d", len(got), limit)
	}
	// The oldest record (echo 0) was evicted.
	if got[0].Command != "echo 1" {
		t.Errorf("oldest surviving command = %q, want echo 1", got[0].Command)
	}
	if got[limit-1].Command != fmt.Sprintf("echo %d", limit) {
		t.Errorf("newest command = %q", got[limit-1].Command)
	}
}

func TestWorkingDirectoryOnlyMovesOnSuccess(t *testing.T) {
	s := newTestSession(t, 0)
	ctx := context.Background()

	if _, err := s.Run(ctx, "cd /src"); err != nil {
		t.Fatal(err)
	}
	if got := s.WorkingDirectory(); got != "/src" {
		t.Fatalf("working dir = %s, want /src", got)
	}

	rec, err := s.Run(ctx, "cd /nope")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ExitStatus != models.StatusFailure {
		t.Errorf("cd to missing dir = %s, want failure", rec.ExitStatus)
	}
	if got := s.WorkingDirectory(); got != "/src" {
		t.Errorf("working dir after failed cd = %s, want /src", got)
	}
}

func TestFailedCommandReturnsSessionToIdle(t *testing.T) {
	s := newTestSession(t, 0)
	ctx := context.Background()

	rec, err := s.Run(ctx, "definitely-not-a-command")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.ExitStatus != models.StatusFailure {
		t.Errorf("status = %s, want failure", rec.ExitStatus)
	}
	if rec.Output != "bash: definitely-not-a-command: command not found" {
		t.Errorf("output = %q", rec.Output)
	}

	// Failure is a terminal state of the command, not of the session.
	if _, err := s.Run(ctx, "pwd"); err != nil {
		t.Errorf("Run after failure = %v", err)
	}
}

func TestClearKeepsWorkingDirectory(t *testing.T) {
	s := newTestSession(t, 0)
	ctx := context.Background()

	s.Run(ctx, "cd /docs")
	s.Run(ctx, "ls")
	s.Clear()

	if len(s.History()) != 0 {
		t.Error("history not empty after Clear")
	}
	if got := s.WorkingDirectory(); got != "/docs" {
		t.Errorf("working dir after Clear = %s, want /docs", got)
	}
	if got := s.RecallPrevious(); got != "" {
		t.Errorf("recall after Clear = %q, want empty draft", got)
	}
}

func TestClearBuiltinEmptiesHistoryAndRecall(t *testing.T) {
	s := newTestSession(t, 0)
	ctx := context.Background()

	s.Run(ctx, "pwd")
	s.Run(ctx, "ls")
	if _, err := s.Run(ctx, "clear"); err != nil {
		t.Fatalf("Run clear: %v", err)
	}

	if got := s.History(); len(got) != 0 {
		t.Errorf("history after clear = %d entries, want 0", len(got))
	}
	if got := s.RecallPrevious(); got != "" {
		t.Errorf("recall after clear = %q, want empty draft", got)
	}
}

func TestRestoreSeedsHistoryAndRecall(t *testing.T) {
	s := newTestSession(t, 3)

	records := make([]models.CommandRecord, 5)
	for i := range records {
		records[i] = models.CommandRecord{
			ID:         fmt.Sprintf("rec-%d", i),
			Command:    fmt.Sprintf("echo %d", i),
			ExitStatus: models.StatusSuccess,
		}
	}
	s.Restore(records)

	// Only the newest records within the cap survive.
	got := s.History()
	if len(got) != 3 {
		t.Fatalf("history length = %d, want 3", len(got))
	}
	if got[0].ID != "rec-2" || got[2].ID != "rec-4" {
		t.Errorf("history window = [%s..%s]", got[0].ID, got[2].ID)
	}

	// Recall walks the restored commands, newest first.
	if cmd := s.RecallPrevious(); cmd != "echo 4" {
		t.Errorf("recall = %q, want echo 4", cmd)
	}
	if cmd := s.RecallPrevious(); cmd != "echo 3" {
		t.Errorf("recall = %q, want echo 3", cmd)
	}
}
