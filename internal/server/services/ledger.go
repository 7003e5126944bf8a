package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenHasher digests refresh bearer values. *auth.Codec satisfies it.
type TokenHasher interface {
	HashToken(token string) (string, error)
	VerifyHashedToken(token, digest string) (bool, error)
}

// RefreshLedger tracks issued refresh tokens per owner. Every method takes
// the DBTX to run on so callers can compose ledger steps into one transaction.
type RefreshLedger struct {
	repomanager repomanager.RepositoryManager
	hasher      TokenHasher
	logger      logging.Logger
	now         func() time.Time
}

func NewRefreshLedger(m repomanager.RepositoryManager, hasher TokenHasher, logger logging.Logger) *RefreshLedger {
	return &RefreshLedger{
		repomanager: m,
		hasher:      hasher,
		logger:      logger.With("module", "ledger"),
		now:         time.Now,
	}
}

// Issue stores a digest of bearer for ownerID under tokenID, valid for ttl.
func (l *RefreshLedger) Issue(ctx context.Context, db dbx.DBTX, ownerID, tokenID, bearer string, ttl time.Duration) (*models.RefreshToken, error) {
	if tokenID == "" {
		return nil, errors.New("refresh token id is required")
	}

	digest, err := l.hasher.HashToken(bearer)
	if err != nil {
		return nil, fmt.Errorf("hash refresh token: %w", err)
	}

	rec := &models.RefreshToken{
		ID:        uuid.NewString(),
		TokenID:   tokenID,
		UserID:    ownerID,
		TokenHash: digest,
		ExpiresAt: l.now().Add(ttl),
	}
	if err := l.repomanager.RefreshTokens(db).Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return rec, nil
}

// FindActiveLatest returns the owner's newest active record.
func (l *RefreshLedger) FindActiveLatest(ctx context.Context, db dbx.DBTX, ownerID string) (*models.RefreshToken, error) {
	return l.repomanager.RefreshTokens(db).FindLatestActive(ctx, ownerID, l.now())
}

// Match returns the active record stored under tokenID when it belongs to
// ownerID and its digest verifies bearer, or common.ErrorNotFound. Inside a
// transaction the record stays locked until it ends.
func (l *RefreshLedger) Match(ctx context.Context, db dbx.DBTX, ownerID, tokenID, bearer string) (*models.RefreshToken, error) {
	if tokenID == "" {
		return nil, common.ErrorNotFound
	}

	rec, err := l.repomanager.RefreshTokens(db).FindActiveByTokenID(ctx, tokenID, l.now())
	if err != nil {
		return nil, err
	}
	if rec.UserID != ownerID {
		l.logger.Warn(ctx, "refresh token owner mismatch", "record_id", rec.ID, "user_id", ownerID)
		return nil, common.ErrorNotFound
	}

	ok, err := l.hasher.VerifyHashedToken(bearer, rec.TokenHash)
	if err != nil {
		l.logger.Warn(ctx, "unreadable refresh token digest", "record_id", rec.ID, "error", err)
		return nil, common.ErrorNotFound
	}
	if !ok {
		return nil, common.ErrorNotFound
	}
	return rec, nil
}

// Revoke marks rec revoked and reports whether this call did so. A record
// already revoked by someone else yields false without error.
func (l *RefreshLedger) Revoke(ctx context.Context, db dbx.DBTX, rec *models.RefreshToken) (bool, error) {
	claimed, err := l.repomanager.RefreshTokens(db).Revoke(ctx, rec.ID)
	if err != nil {
		return false, err
	}
	if claimed {
		rec.Revoked = true
	}
	return claimed, nil
}

// RevokeAllForOwner revokes every active record of ownerID.
func (l *RefreshLedger) RevokeAllForOwner(ctx context.Context, db dbx.DBTX, ownerID string) (int64, error) {
	return l.repomanager.RefreshTokens(db).RevokeAllForUser(ctx, ownerID)
}

// PurgeExpired deletes records that expired at or before now.
func (l *RefreshLedger) PurgeExpired(ctx context.Context, db dbx.DBTX, now time.Time) (int64, error) {
	return l.repomanager.RefreshTokens(db).DeleteExpired(ctx, now)
}

// isNotFound reports whether err is the repository not-found sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}
