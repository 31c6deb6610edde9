package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/xueke/download-client/internal/api/dto"
	"github.com/xueke/download-client/internal/model"
)

const (
	userAgent     = "XuekeDownloadClient/1.0"
	clientVersion = "2.0.0"
)

// Client wraps HTTP operations against the Xueke service.
//
// Client provides:
//   - Configured User-Agent and client-version headers
//   - Timeout handling
//   - JSON request/response helpers for every service endpoint
//   - File download with progress tracking for direct links
//
// Example usage:
//
//	client := api.NewClient("https://xuke.ambition.qzz.io", 30*time.Second)
//
//	if err := client.Ping(ctx); err != nil {
//	    // server unreachable
//	}
//
//	resp, err := client.Login(ctx, dto.LoginRequest{...})
type Client struct {
	httpClient *http.Client

	// mu guards baseURL: the session's background loops issue requests
	// while a reconnect may repoint the client at another server.
	mu      sync.Mutex
	baseURL string
}

// NewClient creates a new HTTP client for the given server URL.
//
// Trailing slashes on the URL are stripped. The timeout bounds every
// request issued by the client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the server URL the client targets.
func (c *Client) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

// SetBaseURL points the client at a different server. Safe to call while
// other goroutines issue requests; in-flight requests finish against the
// old server.
func (c *Client) SetBaseURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(url, "/")
}

// Ping checks server reachability via GET /api/ping.
func (c *Client) Ping(ctx context.Context) error {
	return c.getJSON(ctx, "/api/ping", nil)
}

// Login authenticates the user via POST /api/auth/login.
//
// A non-nil response with Success=false is a server-side rejection; the
// returned error is non-nil only for transport or protocol failures.
func (c *Client) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	var resp dto.LoginResponse
	if err := c.postJSON(ctx, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout notifies the server via POST /api/auth/logout.
func (c *Client) Logout(ctx context.Context) error {
	return c.postJSON(ctx, "/api/auth/logout", nil, nil)
}

// UserDetails fetches the extended profile via GET /api/users/{userId}.
func (c *Client) UserDetails(ctx context.Context, userID string) (*dto.UserDetails, error) {
	var resp dto.UserDetails
	if err := c.getJSON(ctx, "/api/users/"+userID, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateLicense checks a license key via POST /api/license/validate.
func (c *Client) ValidateLicense(ctx context.Context, req dto.ValidateLicenseRequest) (*dto.ValidateLicenseResponse, error) {
	var resp dto.ValidateLicenseResponse
	if err := c.postJSON(ctx, "/api/license/validate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitTask submits a download task via POST /api/tasks.
func (c *Client) SubmitTask(ctx context.Context, req dto.SubmitTaskRequest) (*dto.SubmitTaskResponse, error) {
	var resp dto.SubmitTaskResponse
	if err := c.postJSON(ctx, "/api/tasks", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserTasks lists the user's tasks via GET /api/users/{userId}/tasks.
func (c *Client) UserTasks(ctx context.Context, userID string) ([]*model.Task, error) {
	var tasks []*model.Task
	if err := c.getJSON(ctx, "/api/users/"+userID+"/tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// TaskDetail fetches one task via GET /api/tasks/{taskId}.
func (c *Client) TaskDetail(ctx context.Context, taskID string) (*model.Task, error) {
	var task model.Task
	if err := c.getJSON(ctx, "/api/tasks/"+taskID, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DownloadLinks fetches a completed task's direct links via
// GET /api/tasks/{taskId}/download.
func (c *Client) DownloadLinks(ctx context.Context, taskID string) ([]string, error) {
	var resp dto.DownloadLinksResponse
	if err := c.getJSON(ctx, "/api/tasks/"+taskID+"/download", &resp); err != nil {
		return nil, err
	}
	return resp.DirectLinks, nil
}

// ReportActivity updates the user's last-activity timestamp via
// POST /api/users/{userId}/activity. Used by the heartbeat.
func (c *Client) ReportActivity(ctx context.Context, userID string) error {
	return c.postJSON(ctx, "/api/users/"+userID+"/activity", nil, nil)
}

// ServerStats fetches service statistics via GET /api/stats.
func (c *Client) ServerStats(ctx context.Context) (map[string]any, error) {
	var stats map[string]any
	if err := c.getJSON(ctx, "/api/stats", &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL()+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL()+path, reader)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Client-Version", clientVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// DownloadFile downloads a direct link to the specified path with optional
// progress callback.
//
// The file is created (or truncated if it exists) and the content is
// streamed directly to disk, avoiding loading the entire file into memory.
// Pass nil to disable progress tracking.
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer file.Close()

	var writer io.Writer = file
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   file,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	_, err = io.Copy(writer, resp.Body)
	return err
}
