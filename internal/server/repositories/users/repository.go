// Package users declares the user directory contract and its PostgreSQL
// implementation.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository is the user directory. Lookups return common.ErrorNotFound when
// no identity matches; Create returns common.ErrorAlreadyExists on a
// duplicate email.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByVerificationCode matches only codes whose expiry is after now.
	GetByVerificationCode(ctx context.Context, code string, now time.Time) (*models.User, error)

	// GetByResetToken matches only tokens whose expiry is after now.
	GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)

	// ConsumeResetToken stores passwordHash and clears the reset token in one
	// conditional write, only while token is still pending and unexpired at
	// now. A token that is unknown, expired or already consumed yields
	// common.ErrorNotFound, so concurrent callers cannot both spend it.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error)

	// Update applies a partial update and returns the updated identity.
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
}
