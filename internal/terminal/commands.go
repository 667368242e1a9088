package terminal

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/codebench/codebench/internal/vfs"
	"github.com/codebench/codebench/internal/workspace"
	"github.com/codebench/codebench/pkg/models"
)

// Result is the outcome of evaluating one command line.
type Result struct {
	Output     string
	Status     models.ExitStatus
	WorkingDir string // non-empty only when the command changes directory
}

// Interpreter evaluates the builtin command set against the workspace tree.
// It performs no process execution; every command is a pure function of the
// tree snapshot plus the tree mutations the command itself requests.
type Interpreter struct {
	ws *workspace.Workspace
}

// NewInterpreter creates an interpreter over the workspace.
func NewInterpreter(ws *workspace.Workspace) *Interpreter {
	return &Interpreter{ws: ws}
}

const helpText = `Available commands:
  ls [path]        list directory contents
  cat <file>       print file contents
  cd [path]        change working directory
  pwd              print working directory
  echo [text...]   print text
  mkdir <dir>      create a folder
  touch <file>     create an empty file
  rm <path>        remove a file or folder (recursive)
  whoami           print the current user
  date             print the current date and time
  clear            clear the terminal
  help             show this help

This is a sandboxed terminal: commands run against the workspace tree only.`

// Eval evaluates one command line in the given working directory.
func (i *Interpreter) Eval(ctx context.Context, commandText, workingDir string) Result {
	args := strings.Fields(commandText)
	if len(args) == 0 {
		return ok("")
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "pwd":
		return ok(workingDir)
	case "echo":
		return ok(strings.Join(args, " "))
	case "whoami":
		return ok("developer")
	case "date":
		return ok(time.Now().Format(time.UnixDate))
	case "clear":
		return ok("")
	case "help":
		return ok(helpText)
	case "ls":
		return i.ls(workingDir, args)
	case "cat":
		return i.cat(workingDir, args)
	case "cd":
		return i.cd(workingDir, args)
	case "mkdir":
		return i.mkdir(workingDir, args)
	case "touch":
		return i.touch(workingDir, args)
	case "rm":
		return i.rm(workingDir, args)
	default:
		return fail(fmt.Sprintf("bash: %s: command not found", cmd))
	}
}

func ok(output string) Result {
	return Result{Output: output, Status: models.StatusSuccess}
}

func fail(output string) Result {
	return Result{Output: output, Status: models.StatusFailure}
}

// resolvePath makes arg absolute against the working directory and
// normalizes "." and "..".
func resolvePath(workingDir, arg string) string {
	if !strings.HasPrefix(arg, vfs.Separator) {
		arg = path.Join(workingDir, arg)
	}
	cleaned := path.Clean(arg)
	if cleaned == "." || cleaned == "" {
		return vfs.Separator
	}
	return cleaned
}

func (i *Interpreter) ls(workingDir string, args []string) Result {
	target := workingDir
	if len(args) > 0 {
		target = resolvePath(workingDir, args[0])
	}
	children, err := i.ws.ListChildren(target)
	if err != nil {
		if n, rerr := i.ws.Read(target); rerr == nil && !n.IsFolder() {
			return ok(n.Name)
		}
		return fail(fmt.Sprintf("ls: cannot access '%s': No such file or directory", argOr(args, workingDir)))
	}
	names := make([]string, 0, len(children))
	for _, c := range children {
		if c.IsFolder() {
			names = append(names, c.Name+vfs.Separator)
		} else {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return ok(strings.Join(names, "\n"))
}

func (i *Interpreter) cat(workingDir string, args []string) Result {
	if len(args) == 0 {
		return fail("cat: missing file operand")
	}
	target := resolvePath(workingDir, args[0])
	n, err := i.ws.Read(target)
	if err != nil {
		return fail(fmt.Sprintf("cat: %s: No such file or directory", args[0]))
	}
	if n.IsFolder() {
		return fail(fmt.Sprintf("cat: %s: Is a directory", args[0]))
	}
	return ok(n.Content)
}

func (i *Interpreter) cd(workingDir string, args []string) Result {
	target := vfs.Separator
	if len(args) > 0 {
		target = resolvePath(workingDir, args[0])
	}
	n, err := i.ws.Read(target)
	if err != nil {
		return fail(fmt.Sprintf("cd: no such file or directory: %s", argOr(args, target)))
	}
	if !n.IsFolder() {
		return fail(fmt.Sprintf("cd: not a directory: %s", argOr(args, target)))
	}
	return Result{Status: models.StatusSuccess, WorkingDir: target}
}

func (i *Interpreter) mkdir(workingDir string, args []string) Result {
	if len(args) == 0 {
		return fail("mkdir: missing operand")
	}
	target := resolvePath(workingDir, args[0])
	parent, name := path.Split(target)
	if parent != vfs.Separator {
		parent = strings.TrimSuffix(parent, vfs.Separator)
	}
	if _, err := i.ws.Create(parent, name, models.KindFolder, ""); err != nil {
		return fail(fmt.Sprintf("mkdir: cannot create directory '%s': %s", args[0], reason(err)))
	}
	return ok("")
}

func (i *Interpreter) touch(workingDir string, args []string) Result {
	if len(args) == 0 {
		return fail("touch: missing file operand")
	}
	target := resolvePath(workingDir, args[0])
	if _, err := i.ws.Read(target); err == nil {
		return ok("") // already exists
	}
	parent, name := path.Split(target)
	if parent != vfs.Separator {
		parent = strings.TrimSuffix(parent, vfs.Separator)
	}
	if _, err := i.ws.Create(parent, name, models.KindFile, ""); err != nil {
		return fail(fmt.Sprintf("touch: cannot touch '%s': %s", args[0], reason(err)))
	}
	return ok("")
}

func (i *Interpreter) rm(workingDir string, args []string) Result {
	// -r and -rf are accepted and ignored: delete is always recursive in the
	// virtual tree.
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		args = args[1:]
	}
	if len(args) == 0 {
		return fail("rm: missing operand")
	}
	target := resolvePath(workingDir, args[0])
	if err := i.ws.Delete(target); err != nil {
		return fail(fmt.Sprintf("rm: cannot remove '%s': %s", args[0], reason(err)))
	}
	return ok("")
}

func reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, vfs.ErrNotFound), errors.Is(err, vfs.ErrParentNotFound):
		return "No such file or directory"
	case errors.Is(err, vfs.ErrDuplicateName):
		return "File exists"
	case errors.Is(err, vfs.ErrCannotDeleteRoot):
		return "Operation not permitted"
	case errors.Is(err, vfs.ErrInvalidName):
		return "Invalid argument"
	default:
		return err.Error()
	}
}

func argOr(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}
