package auth

import "time"

// Credential is the per-tenant OAuth record. There is at most one live
// record per tenant; a save always fully replaces the previous one.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	RealmID      string    `json:"realm_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id,omitempty"`
}

// Expired reports whether the access token must no longer be used.
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
