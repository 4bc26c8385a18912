// Package api is the REST client for the clinic backend's notification and
// login endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/logging"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/gestionclinique/clinic-intray/internal/version"
)

// ErrUnauthorized is wrapped by StatusError for 401 and 403 responses.
var ErrUnauthorized = errors.New("unauthorized")

const maxErrorBodyRunes = 200

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if r := []rune(body); len(r) > maxErrorBodyRunes {
		body = string(r[:maxErrorBodyRunes]) + "..."
	}
	if body == "" {
		return fmt.Sprintf("API error (status %d)", e.Code)
	}
	return fmt.Sprintf("API error: %s (status %d)", body, e.Code)
}

// Unwrap maps authentication failures to ErrUnauthorized.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// TokenSource returns the bearer token for the next request, or "".
type TokenSource func() string

// Client talks to the clinic backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	userAgent  string
	logger     logging.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithTokenSource attaches a bearer token to every request.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.token = ts
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: version.UserAgent(),
		logger:    logging.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchUnread returns the user's unread notifications in server order.
func (c *Client) FetchUnread(ctx context.Context, userID int64) ([]notification.Notification, error) {
	var out []notification.Notification
	path := "/notifications/utilisateur/" + strconv.FormatInt(userID, 10) + "/non-lues"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch unread notifications: %w", err)
	}
	return out, nil
}

// FetchAll returns every notification of the user, read or not.
func (c *Client) FetchAll(ctx context.Context, userID int64) ([]notification.Notification, error) {
	var out []notification.Notification
	path := "/notifications/utilisateur/" + strconv.FormatInt(userID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch notifications: %w", err)
	}
	return out, nil
}

// MarkRead marks one notification read. The response body is ignored.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	path := "/notifications/" + strconv.FormatInt(id, 10) + "/marquer-lue"
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}

// Authority is one granted role.
type Authority struct {
	Authority string `json:"authority"`
}

// LoginRequest is the body of the login call.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is what the backend returns on successful login.
type LoginResponse struct {
	ID          int64       `json:"id"`
	Token       string      `json:"token"`
	Username    string      `json:"username"`
	PhotoURL    string      `json:"photoUrl,omitempty"`
	Authorities []Authority `json:"authorities"`
}

// PrimaryRole returns the first granted authority, or "".
func (r LoginResponse) PrimaryRole() string {
	if len(r.Authorities) == 0 {
		return ""
	}
	return r.Authorities[0].Authority
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var out LoginResponse
	req := LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/login", req, &out); err != nil {
		return LoginResponse{}, fmt.Errorf("login: %w", err)
	}
	if out.Token == "" || out.ID <= 0 {
		return LoginResponse{}, fmt.Errorf("login: incomplete response from backend")
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "error", err.Error())
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("request done", "method", method, "path", path, "status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
