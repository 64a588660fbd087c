package identity

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/vulnradar/vulnradar/internal/errors"
)

// TestTokenVerifier accepts tokens of the form base64("test:<subject>:<email>").
// It exists for local development and integration tests and must stay behind
// the IDENTITY_ALLOW_TEST_TOKENS flag.
type TestTokenVerifier struct {
	fallback Verifier
}

// NewTestTokenVerifier wraps a verifier. Tokens that do not carry the test
// prefix are passed through to the wrapped verifier, so real tokens keep
// working while test tokens are enabled.
func NewTestTokenVerifier(fallback Verifier) *TestTokenVerifier {
	return &TestTokenVerifier{fallback: fallback}
}

// Verify decodes a test token, or defers to the fallback verifier.
func (v *TestTokenVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil || !strings.HasPrefix(string(decoded), "test:") {
		if v.fallback != nil {
			return v.fallback.Verify(ctx, token)
		}
		return nil, fmt.Errorf("not a test token: %w", errors.ErrUnauthorized)
	}

	parts := strings.SplitN(string(decoded), ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("malformed test token: %w", errors.ErrUnauthorized)
	}

	return &Identity{
		SubjectID:     parts[1],
		Email:         parts[2],
		EmailVerified: true,
		DisplayName:   parts[2],
	}, nil
}

// MakeTestToken builds a token that TestTokenVerifier accepts.
func MakeTestToken(subjectID, email string) string {
	return base64.StdEncoding.EncodeToString([]byte("test:" + subjectID + ":" + email))
}
