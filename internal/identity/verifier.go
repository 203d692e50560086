package identity

import "context"

// Verifier is the external identity collaborator: it turns a credential
// token into a user identifier or fails with domain.ErrUnauthorized.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}
