package auth

import "context"

// CredentialStore persists one Credential per tenant. Implementations hold
// no business logic: no expiry checks, no refresh. Load returns (nil, nil)
// when no record exists; Delete on a missing record is not an error.
//
// Stores must be safe for concurrent use across tenants. Last-write-wins
// per tenant key is acceptable: the remote system's version tokens, not
// local state, guard entity mutations.
type CredentialStore interface {
	Load(ctx context.Context, tenant string) (*Credential, error)
	Save(ctx context.Context, tenant string, cred *Credential) error
	Delete(ctx context.Context, tenant string) error
}
