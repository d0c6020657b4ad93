package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"github.com/phvlvck/dardasha/pkg/model"
)

// ServerError is an application-level failure: the server answered but
// signalled failure. Message carries what the server said, if anything.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return "server rejected the request"
	}
	return e.Message
}

func asServerError(err error) (*ServerError, bool) {
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return srvErr, true
	}
	return nil, false
}

// APIClient talks to the chat server's HTTP API. The server tracks the
// authenticated session in a cookie, so one client instance must be reused
// across calls.
type APIClient struct {
	base string
	http *http.Client
}

// NewAPIClient creates an API client for the given base URL
// (e.g. "http://localhost:5000").
func NewAPIClient(baseURL string) *APIClient {
	jar, _ := cookiejar.New(nil)
	return &APIClient{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Jar: jar},
	}
}

// authResponse is the body of both login and register responses.
type authResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

// errorResponse is the body the server sends on rejected GETs.
type errorResponse struct {
	Error string `json:"error"`
}

// Login authenticates with the server and returns the granted session.
// A rejected login comes back as *ServerError.
func (c *APIClient) Login(ctx context.Context, username, password string) (model.Session, error) {
	return c.auth(ctx, "/api/login", map[string]string{
		"username": username,
		"password": password,
	})
}

// Register creates an account and returns the granted session.
// Field validation happens before this call, not here.
func (c *APIClient) Register(ctx context.Context, username, email, password string) (model.Session, error) {
	return c.auth(ctx, "/api/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
}

func (c *APIClient) auth(ctx context.Context, path string, body map[string]string) (model.Session, error) {
	var resp authResponse
	if err := c.postJSON(ctx, path, body, &resp); err != nil {
		return model.Session{}, err
	}
	if !resp.Success {
		return model.Session{}, &ServerError{Message: resp.Message}
	}
	// The server's opaque token is the user id.
	return model.Session{
		Token:    strconv.FormatInt(resp.User.ID, 10),
		Username: resp.User.Username,
	}, nil
}

// Logout tells the server to drop the session. Callers treat failures as
// best-effort; the local session is cleared regardless.
func (c *APIClient) Logout(ctx context.Context) error {
	var resp authResponse
	return c.postJSON(ctx, "/api/logout", struct{}{}, &resp)
}

// SearchUsers returns users matching the query. The empty query returns
// everyone, which is how the conversation list is populated.
func (c *APIClient) SearchUsers(ctx context.Context, query string) ([]model.User, error) {
	var users []model.User
	if err := c.getJSON(ctx, "/api/users/search?q="+url.QueryEscape(query), &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser fetches a single user's profile.
func (c *APIClient) GetUser(ctx context.Context, id int64) (model.User, error) {
	var user model.User
	if err := c.getJSON(ctx, fmt.Sprintf("/api/user/%d", id), &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Messages fetches the full history with the given user, oldest first.
func (c *APIClient) Messages(ctx context.Context, userID int64) ([]model.Message, error) {
	var msgs []model.Message
	if err := c.getJSON(ctx, fmt.Sprintf("/api/messages/%d", userID), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *APIClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("api: marshal %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("api: request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: post %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	// The server answers rejected logins/registrations with a 4xx and the
	// same JSON shape, so the body is decoded regardless of status.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s: %w", path, err)
	}
	return nil
}

func (c *APIClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("api: request %s: %w", path, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: get %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		var serverErr errorResponse
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &serverErr) == nil && serverErr.Error != "" {
			return &ServerError{Message: serverErr.Error}
		}
		return &ServerError{Message: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s: %w", path, err)
	}
	return nil
}
