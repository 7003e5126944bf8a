// Package refreshtokens declares the server-side repository contract for
// refresh token ledger records.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository stores refresh token records keyed by owner. Records carry only
// a digest of the bearer value.
type Repository interface {
	// Create stores a new record. ID, TokenID, UserID, TokenHash and
	// ExpiresAt must be set.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindActiveByTokenID returns the unrevoked, unexpired record with the
	// given token id or common.ErrorNotFound. The row is locked for the rest
	// of the enclosing transaction.
	FindActiveByTokenID(ctx context.Context, tokenID string, now time.Time) (*models.RefreshToken, error)

	// FindLatestActive returns the owner's newest active record or
	// common.ErrorNotFound.
	FindLatestActive(ctx context.Context, userID string, now time.Time) (*models.RefreshToken, error)

	// Revoke flips the revoked flag and reports whether this call did it.
	// A record that is already revoked yields false.
	Revoke(ctx context.Context, id string) (bool, error)

	// RevokeAllForUser revokes every active record of the owner.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes records whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
