package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/vulnradar/vulnradar/internal/config"
	"github.com/vulnradar/vulnradar/internal/errors"
)

// GoogleVerifier validates ID tokens by calling the Identity Toolkit
// accounts:lookup endpoint.
type GoogleVerifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewGoogleVerifier creates a verifier from the identity configuration.
func NewGoogleVerifier(cfg config.IdentityConfig) *GoogleVerifier {
	return &GoogleVerifier{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

type lookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
		DisplayName   string `json:"displayName"`
	} `json:"users"`
}

// Verify calls accounts:lookup and maps the first returned account onto an
// Identity. Upstream 5xx responses are transient; anything the endpoint
// rejects outright is an authentication failure.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", errors.ErrUnauthorized)
	}

	body, err := json.Marshal(lookupRequest{IDToken: token})
	if err != nil {
		return nil, errors.NewPermanentf("encoding lookup request: %w", err)
	}

	endpoint := v.endpoint
	if v.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(v.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewPermanentf("building lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, errors.NewTransientf("identity lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("identity lookup throttled: %w", errors.ErrRateLimit)
	case resp.StatusCode >= 500:
		return nil, errors.NewTransientf("identity lookup returned %d", resp.StatusCode)
	default:
		// 400 is what the endpoint returns for invalid or expired tokens.
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("token rejected with status %d: %w", resp.StatusCode, errors.ErrUnauthorized)
	}

	var lookup lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return nil, errors.NewTransientf("decoding lookup response: %w", err)
	}
	if len(lookup.Users) == 0 {
		return nil, fmt.Errorf("token resolved to no account: %w", errors.ErrUnauthorized)
	}

	account := lookup.Users[0]
	return &Identity{
		SubjectID:     account.LocalID,
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
		DisplayName:   account.DisplayName,
	}, nil
}
