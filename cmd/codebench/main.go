// Package main provides a CLI for interacting with a CodeBench server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/codebench/codebench/pkg/client"
	"github.com/codebench/codebench/pkg/models"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	token := flag.String("token", "", "Bearer token (overrides -user/-password)")
	user := flag.String("user", "", "Username for login")
	password := flag.String("password", "", "Password for login")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")

	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c := client.New(client.Config{
		BaseURL:   *serverURL,
		Timeout:   *timeout,
		AuthToken: *token,
	})

	ctx := context.Background()

	if *token == "" && *user != "" {
		if err := c.Login(ctx, *user, *password); err != nil {
			fail("login failed: %v", err)
		}
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "tree":
		cmdTree(ctx, c)
	case "cat":
		cmdCat(ctx, c, cmdArgs)
	case "write":
		cmdWrite(ctx, c, cmdArgs)
	case "mkdir":
		cmdCreate(ctx, c, cmdArgs, models.KindFolder)
	case "touch":
		cmdCreate(ctx, c, cmdArgs, models.KindFile)
	case "rm":
		cmdRemove(ctx, c, cmdArgs)
	case "mv":
		cmdMove(ctx, c, cmdArgs)
	case "search":
		cmdSearch(ctx, c, cmdArgs)
	case "open":
		cmdQuickOpen(ctx, c, cmdArgs)
	case "exec":
		cmdExec(ctx, c, cmdArgs)
	case "history":
		cmdHistory(ctx, c)
	case "snapshot":
		cmdSnapshot(ctx, c, cmdArgs)
	case "watch":
		cmdWatch(c, *serverURL)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`CodeBench CLI

Usage: codebench [flags] <command> [args]

Flags:
  -server <url>     Server URL (default: http://localhost:8080)
  -token <jwt>      Bearer token
  -user <name>      Username for login
  -password <pass>  Password for login
  -timeout <dur>    Request timeout (default: 30s)

Commands:
  tree                      Print the workspace tree
  cat <path>                Print a file's content
  write <path>              Replace a file's content from stdin
  touch <path>              Create an empty file
  mkdir <path>              Create a folder
  rm <path>                 Delete a file or folder (recursive)
  mv <path> <parent>        Move a node under a new parent folder
  search <query> [from]     Search node names
  open <query>              Fuzzy-match file names
  exec <command...>         Run a terminal command
  history                   Print the terminal history
  snapshot [list|create|restore <key>]
                            Manage workspace snapshots
  watch                     Stream workspace events
  help                      Show this help message

Examples:
  codebench tree
  codebench cat /src/main.py
  echo 'print("hi")' | codebench write /src/main.py
  codebench exec ls /src
  codebench -user dev -password secret snapshot create`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func needArgs(args []string, n int, usage string) {
	if len(args) < n {
		fail("usage: codebench %s", usage)
	}
}

func cmdTree(ctx context.Context, c *client.Client) {
	root, err := c.FetchTree(ctx)
	if err != nil {
		fail("%v", err)
	}
	printNode(root, 0)
}

func printNode(n *models.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	name := n.Name
	if n.IsFolder() {
		name += "/"
	}
	fmt.Printf("%s%s\n", indent, name)
	for _, child := range n.Children {
		printNode(child, depth+1)
	}
}

func cmdCat(ctx context.Context, c *client.Client, args []string) {
	needArgs(args, 1, "cat <path>")
	node, err := c.ReadNode(ctx, args[0])
	if err != nil {
		fail("%v", err)
	}
	if node.IsFolder() {
		fail("%s is a folder", args[0])
	}
	fmt.Print(node.Content)
}

func cmdWrite(ctx context.Context, c *client.Client, args []string) {
	needArgs(args, 1, "write <path>")
	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		fail("read stdin: %v", err)
	}
	node, err := c.WriteContent(ctx, args[0], string(content))
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("wrote %d bytes to %s\n", len(content), node.Path)
}

func cmdCreate(ctx context.Context, c *client.Client, args []string, kind models.NodeKind) {
	needArgs(args, 1, string(kind)+" <path>")
	parent, name := splitPath(args[0])
	node, err := c.CreateNode(ctx, parent, name, kind, "")
	if err != nil {
		fail("%v", err)
	}
	fmt.Println(node.Path)
}

func cmdRemove(ctx context.Context, c *client.Client, args []string) {
	needArgs(args, 1, "rm <path>")
	if err := c.Delete(ctx, args[0]); err != nil {
		fail("%v", err)
	}
}

func cmdMove(ctx context.Context, c *client.Client, args []string) {
	needArgs(args, 2, "mv <path> <parent>")
	node, err := c.Move(ctx, args[0], args[1])
	if err != nil {
		fail("%v", err)
	}
	fmt.Println(node.Path)
}

func cmdSearch(ctx context.Context, c *client.Client, args []string) {
	needArgs(args, 1, "search <query> [from]")
	from := "/"
	if len(args) > 1 {
		from = args[1]
	}
	results, err := c.Search(ctx, args[0], from)
	if err != nil {
		fail("%v", err)
	}
	for _, n := range results {
		fmt.Println(n.Path)
	}
}

func cmdQuickOpen(ctx context.Context, c *client.Client, args []string) {
	needArgs(args, 1, "open <query>")
	matches, err := c.QuickOpen(ctx, args[0], 20)
	if err != nil {
		fail("%v", err)
	}
	for _, n := range matches {
		fmt.Println(n.Path)
	}
}

func cmdExec(ctx context.Context, c *client.Client, args []string) {
	needArgs(args, 1, "exec <command...>")
	resp, err := c.Execute(ctx, strings.Join(args, " "))
	if err != nil {
		fail("%v", err)
	}
	if resp.Record == nil {
		return
	}
	if resp.Record.Output != "" {
		fmt.Println(resp.Record.Output)
	}
	if resp.Record.ExitStatus == models.StatusFailure {
		os.Exit(1)
	}
}

func cmdHistory(ctx context.Context, c *client.Client) {
	resp, err := c.History(ctx)
	if err != nil {
		fail("%v", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tDIR\tCOMMAND")
	for _, rec := range resp.Commands {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rec.StartedAt.Local().Format("15:04:05"),
			rec.ExitStatus, rec.WorkingDirectory, rec.Command)
	}
	w.Flush()
}

func cmdSnapshot(ctx context.Context, c *client.Client, args []string) {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "list":
		resp, err := c.ListSnapshots(ctx)
		if err != nil {
			fail("%v", err)
		}
		for _, key := range resp.Keys {
			fmt.Println(key)
		}
	case "create":
		snap, err := c.CreateSnapshot(ctx)
		if err != nil {
			fail("%v", err)
		}
		fmt.Println(snap.Key)
	case "restore":
		needArgs(args, 2, "snapshot restore <key>")
		if _, err := c.RestoreSnapshot(ctx, args[1]); err != nil {
			fail("%v", err)
		}
		fmt.Println("restored", args[1])
	default:
		fail("usage: codebench snapshot [list|create|restore <key>]")
	}
}

func cmdWatch(c *client.Client, serverURL string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sse := client.NewSSEClient(serverURL, nil)
	sse.SetAuthToken(c.AuthToken())

	for event := range sse.Subscribe(ctx) {
		fmt.Printf("%s  %-8s %s\n",
			time.Unix(event.Timestamp, 0).Local().Format("15:04:05"),
			event.Type, event.Path)
	}
}

// splitPath splits a workspace path into parent path and base name.
func splitPath(p string) (parent, name string) {
	p = strings.TrimSuffix(p, "/")
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/", strings.TrimPrefix(p, "/")
	}
	return p[:i], p[i+1:]
}
