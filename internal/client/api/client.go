// Package api is the typed HTTP client for the VibeCoders REST API.
//
// Every call returns either a decoded body or one of:
//
//	*AuthRejected     the server answered with an "error" field or non-2xx
//	*NetworkFailure   no response (refused, timeout, canceled)
//	ErrMalformedResponse  a 2xx whose body is not the expected JSON
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vibecoders/vibecoders/internal/client/session"
)

const maxBodyBytes = 1 << 20

// Client talks to one API server. Safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

// New returns a client for baseURL ("http://localhost:8080").
func New(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parsing base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", baseURL)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// envelope is decoded from every response to find a server-reported error,
// which may arrive with any status.
type envelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// do sends in as JSON (when non-nil) and decodes the response into out (when
// non-nil). token, when set, is sent as a bearer credential.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encoding %s: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("api: building %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", slog.String("op", op), slog.String("error", err.Error()))
		return &NetworkFailure{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &NetworkFailure{Op: op, Err: err}
	}
	c.logger.Debug("request completed",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		// Non-object bodies simply carry no error field.
		_ = json.Unmarshal(raw, &env)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || env.Error != "" {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &AuthRejected{Status: resp.StatusCode, Code: env.Code, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	}
	return nil
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	User  *session.UserSummary `json:"user"`
	Token string               `json:"token"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, http.MethodPost, "/api/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.User == nil || res.User.Username == "" || res.Token == "" {
		return nil, fmt.Errorf("%w: login response without user or token", ErrMalformedResponse)
	}
	return &res, nil
}

// Profile holds the user-editable fields.
type Profile struct {
	Bio         string `json:"bio"`
	LinkedinURL string `json:"linkedin_url"`
	GithubURL   string `json:"github_url"`
	PhotoURL    string `json:"photo_url"`
}

// RegisterRequest is sent flat: credentials next to the profile fields.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Profile
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*session.UserSummary, error) {
	var res struct {
		User *session.UserSummary `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/register", "", req, &res); err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, fmt.Errorf("%w: register response without user", ErrMalformedResponse)
	}
	return res.User, nil
}

// WhoAmI is the server's view of a bearer token.
type WhoAmI struct {
	Authenticated bool                 `json:"authenticated"`
	Username      string               `json:"username"`
	User          *session.UserSummary `json:"user"`
}

// Session asks the server whether token is still valid.
func (c *Client) Session(ctx context.Context, token string) (*WhoAmI, error) {
	var res WhoAmI
	if err := c.do(ctx, http.MethodGet, "/api/user", token, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout revokes token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/logout", token, nil, nil)
}

// GetUser fetches a public profile.
func (c *Client) GetUser(ctx context.Context, username string) (*session.UserSummary, error) {
	var res struct {
		User *session.UserSummary `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(username), "", nil, &res); err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, fmt.Errorf("%w: user response without user", ErrMalformedResponse)
	}
	return res.User, nil
}

// UpdateProfile replaces the profile of username, which must be the token's
// owner.
func (c *Client) UpdateProfile(ctx context.Context, token, username string, p Profile) (*session.UserSummary, error) {
	var res struct {
		User *session.UserSummary `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(username), token, p, &res); err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, fmt.Errorf("%w: user response without user", ErrMalformedResponse)
	}
	return res.User, nil
}
