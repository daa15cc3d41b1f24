// Package auth resolves the caller's identity from a session token issued by
// the external auth service.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNoSession is returned when the request carries no token.
	ErrNoSession = errors.New("no session")
	// ErrInvalidSession is returned when the auth service rejects the token.
	ErrInvalidSession = errors.New("invalid session")
)

// SessionVerifier maps a session token to a user id.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

// HTTPVerifier asks the auth service who owns a token via GET {baseURL}/user.
type HTTPVerifier struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPVerifier creates a verifier for a GoTrue-compatible auth endpoint
// (e.g. https://<project>.supabase.co/auth/v1).
func NewHTTPVerifier(baseURL, apiKey string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type userResponse struct {
	ID string `json:"id"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrNoSession
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/user", nil)
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", ErrInvalidSession
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("auth service returned HTTP %d", resp.StatusCode)
	}

	var u userResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&u); err != nil {
		return "", fmt.Errorf("parse auth response: %w", err)
	}
	if strings.TrimSpace(u.ID) == "" {
		return "", ErrInvalidSession
	}
	return u.ID, nil
}

// tokenFromCookie accepts a bare access token or the JSON forms some auth
// client libraries store: ["<access>","<refresh>",...] or {"access_token":"…"}.
func tokenFromCookie(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "["):
		var parts []any
		if json.Unmarshal([]byte(raw), &parts) == nil && len(parts) > 0 {
			if s, ok := parts[0].(string); ok {
				return s
			}
		}
		return ""
	case strings.HasPrefix(raw, "{"):
		var obj struct {
			AccessToken string `json:"access_token"`
		}
		if json.Unmarshal([]byte(raw), &obj) == nil {
			return obj.AccessToken
		}
		return ""
	}
	return raw
}
