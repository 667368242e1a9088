// Package client provides an HTTP client for the CodeBench API with retry
// and auth support.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codebench/codebench/pkg/models"
	"github.com/codebench/codebench/pkg/protocol"
	"github.com/codebench/codebench/pkg/retry"
)

// Client talks to a CodeBench server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
	log        *zap.Logger

	mu        sync.RWMutex
	authToken string
}

// Config holds client configuration.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Policy    retry.Policy
	AuthToken string
	Logger    *zap.Logger
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = retry.DefaultPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		policy:    cfg.Policy,
		log:       cfg.Logger,
		authToken: cfg.AuthToken,
	}
}

// SetAuthToken sets the JWT auth token for requests.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

// AuthToken returns the current token.
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// APIError is a non-2xx response decoded from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// doJSON performs one JSON round trip with retry on transport and 5xx errors.
// in may be nil for empty bodies; out may be nil to discard the response.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	return retry.Do(ctx, c.policy, func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.mu.RLock()
		if c.authToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.authToken)
		}
		c.mu.RUnlock()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Debug("request failed", zap.String("path", path), zap.Error(err))
			return retry.Transient(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			apiErr := &APIError{StatusCode: resp.StatusCode}
			var errResp protocol.ErrorResponse
			if json.NewDecoder(resp.Body).Decode(&errResp) == nil {
				apiErr.Message = errResp.Error
			}
			if resp.StatusCode >= 500 {
				return retry.Transient(apiErr)
			}
			return apiErr
		}

		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// Login exchanges credentials for a token and stores it on the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp protocol.LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/token",
		protocol.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return err
	}
	c.SetAuthToken(resp.Token)
	return nil
}

// Ping checks server health.
func (c *Client) Ping(ctx context.Context) error {
	var health protocol.HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/healthz", nil, &health); err != nil {
		return err
	}
	if health.Status != "ok" {
		return fmt.Errorf("server status %q", health.Status)
	}
	return nil
}

// FetchTree fetches the full workspace tree.
func (c *Client) FetchTree(ctx context.Context) (*models.Node, error) {
	var resp protocol.TreeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/tree", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Root, nil
}

// ReadNode fetches the node at path with its subtree.
func (c *Client) ReadNode(ctx context.Context, path string) (*models.Node, error) {
	var node models.Node
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/nodes"+escapePath(path), nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// CreateNode creates a file or folder under parentPath.
func (c *Client) CreateNode(ctx context.Context, parentPath, name string, kind models.NodeKind, content string) (*models.Node, error) {
	var node models.Node
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/nodes", protocol.CreateNodeRequest{
		ParentPath: parentPath,
		Name:       name,
		Kind:       kind,
		Content:    content,
	}, &node)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// Rename changes a node's name.
func (c *Client) Rename(ctx context.Context, path, newName string) (*models.Node, error) {
	var node models.Node
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/nodes/rename",
		protocol.RenameRequest{Path: path, NewName: newName}, &node)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// Move reparents a node.
func (c *Client) Move(ctx context.Context, path, newParentPath string) (*models.Node, error) {
	var node models.Node
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/nodes/move",
		protocol.MoveRequest{Path: path, NewParentPath: newParentPath}, &node)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// Delete removes a node and its descendants.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/nodes"+escapePath(path), nil, nil)
}

// WriteContent replaces a file's content.
func (c *Client) WriteContent(ctx context.Context, path, content string) (*models.Node, error) {
	var node models.Node
	err := c.doJSON(ctx, http.MethodPut, "/api/v1/content",
		protocol.WriteContentRequest{Path: path, Content: content}, &node)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// Search performs a name search scoped to fromPath.
func (c *Client) Search(ctx context.Context, query, fromPath string) ([]*models.Node, error) {
	var resp protocol.SearchResponse
	p := "/api/v1/search?q=" + url.QueryEscape(query)
	if fromPath != "" {
		p += "&from=" + url.QueryEscape(fromPath)
	}
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// QuickOpen fuzzy-matches file names.
func (c *Client) QuickOpen(ctx context.Context, query string, limit int) ([]*models.Node, error) {
	var resp protocol.QuickOpenResponse
	p := "/api/v1/quickopen?q=" + url.QueryEscape(query)
	if limit > 0 {
		p += "&limit=" + strconv.Itoa(limit)
	}
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// OpenFile opens a file in the server-side editing session.
func (c *Client) OpenFile(ctx context.Context, path string) (*models.ActiveFile, error) {
	var resp protocol.ActiveFileResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/session/open",
		protocol.OpenFileRequest{Path: path}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.File, nil
}

// Edit replaces the active file's draft content.
func (c *Client) Edit(ctx context.Context, content string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/v1/session/content",
		protocol.EditRequest{Content: content}, nil)
}

// Save forces an immediate save of the active file.
func (c *Client) Save(ctx context.Context) (*protocol.SaveResponse, error) {
	var resp protocol.SaveResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/session/save", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Execute runs a terminal command. The record is nil for empty submissions.
func (c *Client) Execute(ctx context.Context, command string) (*protocol.ExecuteResponse, error) {
	var resp protocol.ExecuteResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/terminal/execute",
		protocol.ExecuteRequest{Command: command}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns the terminal history, oldest first.
func (c *Client) History(ctx context.Context) (*protocol.HistoryResponse, error) {
	var resp protocol.HistoryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/terminal/history", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearHistory empties the terminal history.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/terminal/history", nil, nil)
}

// CreateSnapshot archives the current tree and returns its key.
func (c *Client) CreateSnapshot(ctx context.Context) (*protocol.SnapshotResponse, error) {
	var resp protocol.SnapshotResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/snapshots", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSnapshots lists archived snapshots, newest first.
func (c *Client) ListSnapshots(ctx context.Context) (*protocol.SnapshotListResponse, error) {
	var resp protocol.SnapshotListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/snapshots", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RestoreSnapshot replaces the workspace with an archived snapshot.
func (c *Client) RestoreSnapshot(ctx context.Context, key string) (*models.Node, error) {
	var resp protocol.TreeResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/snapshots/restore",
		protocol.RestoreRequest{Key: key}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Root, nil
}

// escapePath escapes each segment of a workspace path for use in a URL.
func escapePath(p string) string {
	u := &url.URL{Path: p}
	return u.EscapedPath()
}
