package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fleetdeck/internal/logging"
)

const (
	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 4 << 10
)

// Client talks to the container management API.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request issued by the client. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient builds a client for the backend rooted at baseURL. A bare
// host:port is treated as http.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("backend url is required")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("parse backend url: missing host in %q", baseURL)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	c := &Client{base: base, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// ListContainers returns the backend's container listing in backend order. A
// JSON null body is an empty fleet; any other non-array body is malformed.
func (c *Client) ListContainers(ctx context.Context) ([]Container, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/containers", nil, nil, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Container{}, nil
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: container listing is not an array", ErrMalformed)
	}
	var containers []Container
	if err := json.Unmarshal(trimmed, &containers); err != nil {
		return nil, fmt.Errorf("%w: decode container listing: %w", ErrMalformed, err)
	}
	return containers, nil
}

// ContainerStatus fetches one worker's raw status. Failures are folded into
// the result rather than returned separately.
func (c *Client) ContainerStatus(ctx context.Context, id string) StatusResult {
	var status *Status
	if err := c.doJSON(ctx, http.MethodGet, containerPath(id, "status"), nil, nil, &status); err != nil {
		return Failed(err)
	}
	return Ok(status)
}

// Command posts a lifecycle action (pause, resume, stop) for a worker. The
// response body is ignored beyond success or failure.
func (c *Client) Command(ctx context.Context, id, action string) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return errors.New("command action is required")
	}
	return c.doJSON(ctx, http.MethodPost, containerPath(id, action), nil, nil, nil)
}

// Logs returns the last tail lines of a container's output.
func (c *Client) Logs(ctx context.Context, id string, tail int) (string, error) {
	query := url.Values{}
	if tail > 0 {
		query.Set("tail", strconv.Itoa(tail))
	}
	var resp logsResponse
	if err := c.doJSON(ctx, http.MethodGet, containerPath(id, "logs"), query, nil, &resp); err != nil {
		return "", err
	}
	return resp.Logs, nil
}

// Health queries the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, nil, &health)
	return health, err
}

// UploadDescriptor uploads a job descriptor file as multipart field "file".
func (c *Client) UploadDescriptor(ctx context.Context, filename string, content io.Reader) (UploadResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return UploadResponse{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return UploadResponse{}, fmt.Errorf("read descriptor %s: %w", filename, err)
	}
	if err := writer.Close(); err != nil {
		return UploadResponse{}, fmt.Errorf("build upload form: %w", err)
	}

	var resp UploadResponse
	err = c.do(ctx, http.MethodPost, "/api/torrents/upload", nil, &body, writer.FormDataContentType(), &resp)
	return resp, err
}

// CreateContainer registers a new managed worker.
func (c *Client) CreateContainer(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return CreateResponse{}, fmt.Errorf("encode create request: %w", err)
	}
	var resp CreateResponse
	err = c.doJSON(ctx, http.MethodPost, "/api/containers", nil, bytes.NewReader(payload), &resp)
	return resp, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body io.Reader, out any) error {
	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	return c.do(ctx, method, path, query, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	if c == nil {
		return ErrUnavailable
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := *c.base
	endpoint.Path = c.base.Path + path
	endpoint.RawPath = ""
	if strings.Contains(path, "%") {
		endpoint.RawPath = c.base.Path + path
		if unescaped, err := url.PathUnescape(endpoint.RawPath); err == nil {
			endpoint.Path = unescaped
		}
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if id, ok := logging.CorrelationIDFromContext(ctx); ok {
		req.Header.Set(requestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeStatusError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrMalformed, method, path, err)
	}
	return nil
}

func decodeStatusError(method, path string, resp *http.Response) error {
	statusErr := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload errorResponse
	if json.Unmarshal(data, &payload) == nil && strings.TrimSpace(payload.Error) != "" {
		statusErr.Message = strings.TrimSpace(payload.Error)
	} else {
		statusErr.Message = strings.TrimSpace(string(data))
	}
	return statusErr
}

func containerPath(id, action string) string {
	return "/api/containers/" + url.PathEscape(strings.TrimSpace(id)) + "/" + action
}
