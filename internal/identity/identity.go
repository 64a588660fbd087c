// Package identity verifies bearer tokens against the Google Identity
// Toolkit and resolves them to application users.
package identity

import (
	"context"
)

// Identity is the verified subject behind a bearer token.
type Identity struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	DisplayName   string
}

// Verifier resolves a raw bearer token to an identity. Implementations
// return errors.ErrUnauthorized (wrapped) for tokens that fail verification.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
