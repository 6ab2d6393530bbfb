// Package backend is a typed client for the document service's REST API.
package backend

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
	"strconv"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is where the service listens during local development.
	DefaultBaseURL = "http://127.0.0.1:8000"

	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second

	// DefaultListTimeout bounds the document list fetch.
	DefaultListTimeout = 10 * time.Second

	// DefaultRateLimit is the default request rate (requests per second).
	DefaultRateLimit = 10

	// MaxContentBytes is the largest document the service accepts.
	MaxContentBytes = 1024 * 1024
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client talks to the document service.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	tokens         TokenSource
	listTimeout    time.Duration
	onUnauthorized func()
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets a custom rate limit. Zero or less disables limiting.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithListTimeout bounds the document list fetch.
func WithListTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.listTimeout = d
	}
}

// WithUnauthorizedHandler sets fn to run whenever the backend rejects the
// token on an authenticated call.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		tokens:      tokens,
		listTimeout: DefaultListTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	authed      bool
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, authed bool) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, request{method: method, path: path, body: body, contentType: contentType, authed: authed}, out)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	op := r.method + " " + r.path

	var token string
	if r.authed {
		token = c.tokens.Token()
		if token == "" {
			return ErrNoSession
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Op: op, Err: err, Timeout: isTimeout(err) || isTimeout(ctx.Err())}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Str("op", op).Err(err).Msg("backend request failed")
		return &NetworkError{Op: op, Err: err, Timeout: isTimeout(err)}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(data, resp.StatusCode),
			Endpoint:   r.path,
		}
		if resp.StatusCode == http.StatusUnauthorized && r.authed {
			if c.onUnauthorized != nil {
				c.onUnauthorized()
			}
			return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	return nil
}

// Login exchanges credentials for a bearer token. A 401 here means bad
// credentials, so it is returned as an *APIError.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup creates an account.
func (c *Client) Signup(ctx context.Context, in SignupRequest) (*SignupResponse, error) {
	var out SignupResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", in, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserData returns the signed-in user's profile.
func (c *Client) UserData(ctx context.Context) (*User, error) {
	var out User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/user-data", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDocuments returns the user's documents, newest first.
func (c *Client) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	if c.listTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.listTimeout)
		defer cancel()
	}
	var out []DocumentSummary
	if err := c.doJSON(ctx, http.MethodGet, "/documents/list", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDocument fetches a document with its content.
func (c *Client) GetDocument(ctx context.Context, id int64) (*Document, error) {
	var out Document
	if err := c.doJSON(ctx, http.MethodGet, documentPath(id), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDocument replaces a document's content.
func (c *Client) UpdateDocument(ctx context.Context, id int64, content string) error {
	body := map[string]string{"content": content}
	return c.doJSON(ctx, http.MethodPut, documentPath(id), body, &messageResponse{}, true)
}

// RenameDocument changes a document's title.
func (c *Client) RenameDocument(ctx context.Context, id int64, title string) error {
	body := map[string]string{"title": title}
	return c.doJSON(ctx, http.MethodPut, documentPath(id)+"/rename", body, &messageResponse{}, true)
}

// DeleteDocument removes a document.
func (c *Client) DeleteDocument(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, documentPath(id), nil, &messageResponse{}, true)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadDocument stores content as a new plain text document named name.
func (c *Client) UploadDocument(ctx context.Context, name string, content []byte) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating upload part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("writing upload part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing upload body: %w", err)
	}

	var out UploadResult
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/documents/upload",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		authed:      true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FilenameExists reports whether the user already has a document named name.
func (c *Client) FilenameExists(ctx context.Context, name string) (bool, error) {
	var out FilenameCheck
	if err := c.doJSON(ctx, http.MethodGet, "/documents/check-filename/"+url.PathEscape(name), nil, &out, true); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// NextUntitledNumber returns the number for the next "Untitled N.txt".
func (c *Client) NextUntitledNumber(ctx context.Context) (int, error) {
	var out nextNumberResponse
	if err := c.doJSON(ctx, http.MethodGet, "/documents/get-next-untitled-number", nil, &out, true); err != nil {
		return 0, err
	}
	if out.NextNumber <= 0 {
		return 0, fmt.Errorf("invalid next untitled number %d", out.NextNumber)
	}
	return out.NextNumber, nil
}

// SubmitTrainingData sends a teacher correction.
func (c *Client) SubmitTrainingData(ctx context.Context, in TrainingData) (*TrainingResult, error) {
	var out TrainingResult
	if err := c.doJSON(ctx, http.MethodPost, "/documents/submit-training-data", in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func documentPath(id int64) string {
	return "/documents/" + strconv.FormatInt(id, 10)
}
