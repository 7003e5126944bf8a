package models

import "time"

// RefreshToken is a ledger record. Only the digest of the bearer token is
// stored; the bearer value itself stays with the client. TokenID is the
// bearer's jti claim and addresses the record on refresh.
type RefreshToken struct {
	ID        string
	TokenID   string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Active reports whether the record may still be consumed at now.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
