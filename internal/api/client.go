// Package api is the HTTP client for the assistant backend. Every
// operation returns an explicit result or error; transport and status
// failures are wrapped, never swallowed. All calls require a session
// token except Login and fail closed with session.ErrNotAuthenticated.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"smartassist/internal/logging"
	"smartassist/internal/session"
)

const (
	defaultTimeout = 30 * time.Second

	// Conversation detail responses are cached briefly so that
	// re-selecting the same conversation does not refetch it. Entries
	// are invalidated whenever a stream completes against them.
	detailCacheTTL = 30 * time.Second
)

// StatusError is returned for non-2xx backend responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// Client talks to the assistant backend.
type Client struct {
	baseURL string
	http    *http.Client
	session session.Provider
	log     *zap.Logger

	detailCache *cache.Cache
}

// NewClient creates a client for the given backend root URL.
func NewClient(baseURL string, provider session.Provider) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		http:        &http.Client{Timeout: defaultTimeout},
		session:     provider,
		log:         logging.L("api"),
		detailCache: cache.New(detailCacheTTL, time.Minute),
	}
}

// token returns the stored token or fails closed.
func (c *Client) token() (string, error) {
	sess, ok := c.session.Get()
	if !ok {
		return "", session.ErrNotAuthenticated
	}
	return sess.Token, nil
}

// do performs an authenticated request and decodes a JSON response into
// out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	return c.doRequest(ctx, method, path, body, contentType, "Token "+token, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType, auth string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err))
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login posts credentials and returns the resulting session. It does
// not persist it; that is the caller's job.
func (c *Client) Login(ctx context.Context, username, password string) (session.Session, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to marshal credentials: %w", err)
	}

	var resp struct {
		Token string           `json:"token"`
		User  *session.Profile `json:"user"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/api/login/", bytes.NewReader(payload), "application/json", "", &resp); err != nil {
		return session.Session{}, err
	}
	if resp.Token == "" {
		return session.Session{}, fmt.Errorf("login response carried no token")
	}
	return session.Session{Token: resp.Token, Profile: resp.User}, nil
}
