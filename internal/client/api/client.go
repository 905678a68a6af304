// Package api is the REST client for the PopCoin backend. It owns the
// session cookie and translates HTTP status codes into sentinel errors
// the session controller and game engine act on.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/popcoin-idle/popcoin/internal/models"
)

// ErrUnauthorized means the backend no longer recognizes the session.
// Callers must treat this as a forced logout.
var ErrUnauthorized = errors.New("session rejected by backend")

// ErrRejected means the backend refused the request for a reason other
// than authorization (e.g. an invalid login token).
var ErrRejected = errors.New("request rejected by backend")

// Client talks to the PopCoin backend. The underlying http.Client
// carries a cookie jar, so the backend session cookie set at login is
// presented on every later call.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client for the given base URL with a fresh cookie jar.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Jar: jar, Timeout: 15 * time.Second},
	}, nil
}

// Login exchanges an identity token for a backend session. The session
// cookie lands in the jar; the returned user is the backend-confirmed
// profile. An invalid token returns ErrRejected.
func (c *Client) Login(ctx context.Context, token string) (*models.User, error) {
	var resp struct {
		Success bool        `json:"success"`
		User    models.User `json:"user"`
		Error   string      `json:"error"`
	}
	status, err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"token": token}, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	if status != http.StatusOK || !resp.Success {
		return nil, fmt.Errorf("login: unexpected status %d", status)
	}
	return &resp.User, nil
}

// Logout tells the backend to drop the session. Best-effort: callers
// clear local state regardless of the returned error.
func (c *Client) Logout(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodPost, "/api/auth/logout", struct{}{}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("logout: unexpected status %d", status)
	}
	return nil
}

// Status asks the backend whether the current cookie still names a live
// session.
func (c *Client) Status(ctx context.Context) (bool, *models.User, error) {
	var resp struct {
		Authenticated bool         `json:"authenticated"`
		User          *models.User `json:"user"`
	}
	status, err := c.do(ctx, http.MethodGet, "/api/auth/status", nil, &resp)
	if err != nil {
		return false, nil, err
	}
	if status != http.StatusOK {
		return false, nil, fmt.Errorf("status: unexpected status %d", status)
	}
	if !resp.Authenticated {
		return false, nil, nil
	}
	return true, resp.User, nil
}

// GetState loads the player's persisted game state. A 401 returns
// ErrUnauthorized.
func (c *Client) GetState(ctx context.Context) (*models.GameState, error) {
	var state models.GameState
	status, err := c.do(ctx, http.MethodGet, "/api/game/state", nil, &state)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get state: unexpected status %d", status)
	}
	return &state, nil
}

// SaveState writes the full game state to the backend. A 401 returns
// ErrUnauthorized.
func (c *Client) SaveState(ctx context.Context, state *models.GameState) error {
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	status, err := c.do(ctx, http.MethodPost, "/api/game/state", state, &resp)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if status != http.StatusOK || !resp.Success {
		return fmt.Errorf("save state: unexpected status %d: %s", status, resp.Error)
	}
	return nil
}

// Upgrades fetches the server-priced upgrade catalog.
func (c *Client) Upgrades(ctx context.Context) ([]models.UpgradeInfo, error) {
	var resp struct {
		Upgrades []models.UpgradeInfo `json:"upgrades"`
	}
	status, err := c.do(ctx, http.MethodGet, "/api/game/upgrades", nil, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("upgrades: unexpected status %d", status)
	}
	return resp.Upgrades, nil
}

// Leaderboard fetches the top lifetime earners.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	var resp struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	path := fmt.Sprintf("/api/game/leaderboard?limit=%d", limit)
	status, err := c.do(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("leaderboard: unexpected status %d", status)
	}
	return resp.Leaderboard, nil
}

// do issues one JSON request and decodes the response into out (when
// non-nil and the body is JSON). Transport errors come back wrapped;
// HTTP status handling is the caller's.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		// Decode errors on non-200 bodies are ignored: the status
		// code already tells the caller what happened.
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode == http.StatusOK {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
