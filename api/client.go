package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// HeaderAuthorization is the default header the session core manages.
	HeaderAuthorization = "Authorization"

	defaultRequestIDHeader = "X-Request-ID"
	defaultTimeout         = 15 * time.Second
	maxErrorBody           = 64 << 10
)

// Config configures a [Client].
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	UserAgent       string
	RequestIDHeader string

	// HTTPClient overrides the underlying client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// File is one multipart file part for [Client.Upload].
type File struct {
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

// Client sends requests to the API base URL. Default headers may be changed
// at any time from any goroutine; each request takes a copy.
type Client struct {
	base            string
	http            *http.Client
	requestIDHeader string

	mu      sync.RWMutex
	headers http.Header
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q is not absolute", ErrInvalidConfig, base)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must be >= 0", ErrInvalidConfig)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	requestIDHeader := cfg.RequestIDHeader
	if requestIDHeader == "" {
		requestIDHeader = defaultRequestIDHeader
	}

	c := &Client{
		base:            strings.TrimRight(base, "/"),
		http:            hc,
		requestIDHeader: requestIDHeader,
		headers:         make(http.Header),
	}
	c.headers.Set("Accept", "application/json")
	if cfg.UserAgent != "" {
		c.headers.Set("User-Agent", cfg.UserAgent)
	}
	return c, nil
}

// SetDefaultHeader sets a header sent with every subsequent request.
func (c *Client) SetDefaultHeader(name, value string) {
	c.mu.Lock()
	c.headers.Set(name, value)
	c.mu.Unlock()
}

// DeleteDefaultHeader stops sending the named header.
func (c *Client) DeleteDefaultHeader(name string) {
	c.mu.Lock()
	c.headers.Del(name)
	c.mu.Unlock()
}

// DefaultHeader returns the current value of a default header.
func (c *Client) DefaultHeader(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Get(name)
}

// Get decodes the JSON response of GET path into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

// Post sends body as JSON and decodes the response into out, which may be nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// Put is Post with method PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

// Patch is Post with method PATCH.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPatch, path, body, out)
}

// Upload sends file as multipart/form-data using method (usually PATCH).
func (c *Client) Upload(ctx context.Context, method, path string, file File, out any) error {
	if file.Content == nil {
		return fmt.Errorf("api: %s %s: upload has no content", method, path)
	}
	field := file.Field
	if field == "" {
		field = "file"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, file.Name))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return fmt.Errorf("api: %s %s: read upload: %w", method, path, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}

	return c.do(ctx, method, path, mw.FormDataContentType(), &buf, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: %s %s: encode body: %w", method, path, err)
		}
		r = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, r, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}

	c.mu.RLock()
	for k, vs := range c.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	c.mu.RUnlock()

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set(c.requestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newStatusError(method, path, resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: %s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.base + "/" + strings.TrimLeft(path, "/")
}
