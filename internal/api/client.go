// Package api is the typed client for the blog platform's REST API.
//
// It covers the full surface the edge consumes: authentication, profile,
// uploads, and post CRUD with both pagination modes. Transport-level
// concerns (bearer headers, the one-shot 401 recovery) live in transport.go;
// the methods here only know about paths, bodies, and response shapes.
//
// Error contract: any non-2xx response is turned into an *apperror.AppError
// wrapping apperror.ErrUpstream. The upstream `message` field may be a
// string or an array of strings — arrays are joined with ", ", and when the
// body is unusable the per-operation fallback message is used instead.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/blog-edge/internal/apperror"
	"github.com/sakif/blog-edge/internal/model"
)

const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response we read. Upstream error
// bodies are small; this guards against a misbehaving proxy.
const maxErrorBody = 1 << 20

// Client talks to one base URL. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Used to install the
// bearer transport for authenticated calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// do issues one request and decodes the response into out (unless out is
// nil). fallback is the human-readable message used when an error response
// carries no usable message of its own.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, fallback string) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encoding %s %s body: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("api: building %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp, fallback)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("api: decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// upload sends a single file as multipart form data under the "file" field.
func (c *Client) upload(ctx context.Context, path, filename string, r io.Reader, fallback string) (*model.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("api: building multipart body: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("api: copying upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("api: finalising multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("api: building upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.decodeError(resp, fallback)
	}

	var out model.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("api: decoding upload response: %w", err)
	}
	return &out, nil
}

// errorEnvelope matches the upstream error body. `message` is string OR
// []string, so it decodes into any and is flattened by JoinMessages.
type errorEnvelope struct {
	Message any    `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) decodeError(resp *http.Response, fallback string) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperror.Upstream(resp.StatusCode, fallback)
	}

	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return apperror.Upstream(resp.StatusCode, fallback)
	}

	msg := apperror.JoinMessages(env.Message, "")
	if msg == "" {
		msg = env.Error
	}
	if msg == "" {
		msg = fallback
	}
	return apperror.Upstream(resp.StatusCode, msg)
}
