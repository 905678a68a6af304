// Package identity verifies identity-provider credentials on the
// server. The backend never trusts a client-presented token until the
// provider's token-lookup endpoint has confirmed it.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Identity is the provider-confirmed account behind a credential.
type Identity struct {
	UID           string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// ErrInvalidToken means the provider rejected the credential. This is
// distinct from a transport failure: the caller must abort the login,
// not retry it.
var ErrInvalidToken = errors.New("identity token rejected")

// Verifier confirms that a raw identity token belongs to a live account.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// lookupURL is the Google Identity Toolkit account-lookup endpoint.
const lookupURL = "https://identitytoolkit.googleapis.com/v1/accounts:lookup"

// HTTPVerifier verifies tokens against the Identity Toolkit REST API
// using a project API key.
type HTTPVerifier struct {
	APIKey string
	// BaseURL overrides lookupURL, for tests.
	BaseURL string
	// Client is the HTTP client used for lookups. A client with a
	// sane timeout is provided by NewHTTPVerifier.
	Client *http.Client
}

// NewHTTPVerifier returns a verifier for the given project API key.
func NewHTTPVerifier(apiKey string) *HTTPVerifier {
	return &HTTPVerifier{
		APIKey: apiKey,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify posts the token to the account-lookup endpoint. A 400, 401
// or 403 response means the token is invalid (ErrInvalidToken);
// transport errors and other statuses are returned as-is so the caller
// can classify them as transient.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if len(token) < 16 {
		return nil, ErrInvalidToken
	}

	base := v.BaseURL
	if base == "" {
		base = lookupURL
	}
	body, err := json.Marshal(map[string]string{"idToken": token})
	if err != nil {
		return nil, fmt.Errorf("encode lookup request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"?key="+v.APIKey, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		// Only statuses the endpoint uses for a bad credential map to
		// ErrInvalidToken; a 429 or anything else stays transient.
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("token lookup: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Users []struct {
			LocalID       string `json:"localId"`
			Email         string `json:"email"`
			DisplayName   string `json:"displayName"`
			PhotoURL      string `json:"photoUrl"`
			EmailVerified bool   `json:"emailVerified"`
		} `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}
	if len(result.Users) == 0 {
		return nil, ErrInvalidToken
	}

	u := result.Users[0]
	return &Identity{
		UID:           u.LocalID,
		Email:         u.Email,
		Name:          u.DisplayName,
		Picture:       u.PhotoURL,
		EmailVerified: u.EmailVerified,
	}, nil
}
