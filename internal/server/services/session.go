package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/mailer"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/google/uuid"
)

// codeAttempts bounds retries when a fresh verification code collides with
// one that is still pending for another identity.
const codeAttempts = 5

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(digest, plaintext string) (bool, error)
}

// SessionService runs the authentication lifecycle: registration and email
// verification, login, refresh token rotation, logout and password recovery.
//
// State changes are committed before any email is dispatched; a dispatch
// failure is reported to the caller but the committed state stays valid.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	passwords   PasswordHasher
	codec       *auth.Codec
	ledger      *RefreshLedger
	mailer      mailer.Dispatcher
	cfg         *config.Config
	logger      logging.Logger
	now         func() time.Time
}

func NewSessionService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	passwords PasswordHasher,
	codec *auth.Codec,
	ledger *RefreshLedger,
	dispatcher mailer.Dispatcher,
	cfg *config.Config,
	logger logging.Logger,
) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		passwords:   passwords,
		codec:       codec,
		ledger:      ledger,
		mailer:      dispatcher,
		cfg:         cfg,
		logger:      logger.With("module", "session"),
		now:         time.Now,
	}
}

// Register creates an unverified identity and mails it a one-time code.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (*PublicUser, error) {
	email := normalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := s.validatePassword(in.Password); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.Conflict("Email already exists")
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := s.newVerificationCode(ctx, repo)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         models.RoleUser,
		Verification: models.ExpiringSecret{
			Value:     code,
			ExpiresAt: s.now().Add(s.cfg.VerificationCodeValidity),
		},
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.Conflict("Email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)

	if err := s.sendVerification(ctx, created.Email, mailer.SubjectVerify, code); err != nil {
		return nil, err
	}

	pu := newPublicUser(created)
	return &pu, nil
}

// VerifyEmail marks the identity holding code as verified and clears the code.
func (s *SessionService) VerifyEmail(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return common.BadRequest("Invalid or expired OTP")
	}

	now := s.now()
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByVerificationCode(ctx, code, now)
	if err != nil {
		if isNotFound(err) {
			return common.BadRequest("Invalid or expired OTP")
		}
		return fmt.Errorf("lookup verification code: %w", err)
	}
	if user.Verification.Expired(now) {
		return common.BadRequest("Invalid or expired OTP")
	}

	verified := true
	if _, err := repo.Update(ctx, user.ID, models.UserUpdate{
		IsVerified:   &verified,
		Verification: &models.ExpiringSecret{},
	}); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	s.logger.Info(ctx, "email verified", "user_id", user.ID)
	return nil
}

// ResendOTP issues a fresh verification code to an unverified identity.
func (s *SessionService) ResendOTP(ctx context.Context, email string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return common.BadRequest("Invalid request")
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.IsVerified {
		return common.BadRequest("Invalid request")
	}

	code, err := s.newVerificationCode(ctx, repo)
	if err != nil {
		return err
	}

	if _, err := repo.Update(ctx, user.ID, models.UserUpdate{
		Verification: &models.ExpiringSecret{Value: code, ExpiresAt: s.now().Add(s.cfg.VerificationCodeValidity)},
	}); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}

	return s.sendVerification(ctx, user.Email, mailer.SubjectResend, code)
}

// Login verifies credentials and starts a new session.
func (s *SessionService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil, common.Unauthorized("Invalid credentials")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.passwords.Verify(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password for %s: %w", user.ID, err)
	}
	if !ok {
		return nil, common.Unauthorized("Invalid credentials")
	}

	if !user.IsVerified {
		return nil, common.Forbidden("Please verify your email first")
	}

	pair, err := s.issuePair(ctx, s.db, identityOf(user))
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &AuthResult{User: newPublicUser(user), TokenPair: *pair}, nil
}

// RefreshToken consumes a refresh token and returns a new pair. The parent
// record is claimed and the child inserted in one transaction, so a token
// can be consumed at most once.
func (s *SessionService) RefreshToken(ctx context.Context, token string) (*TokenPair, error) {
	if token == "" {
		return nil, common.Unauthorized("Refresh token required")
	}

	claims, err := s.codec.VerifyRefresh(token)
	if err != nil {
		return nil, common.WrapError(common.KindUnauthorized, "Invalid Refresh Token", err)
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := s.ledger.Match(ctx, tx, claims.UserID, claims.TokenID, token)
		if err != nil {
			return err
		}

		claimed, err := s.ledger.Revoke(ctx, tx, rec)
		if err != nil {
			return err
		}
		if !claimed {
			return common.ErrorNotFound
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, claims.UserID)
		if err != nil {
			if isNotFound(err) {
				return common.NotFound("User not found")
			}
			return err
		}

		pair, err = s.issuePair(ctx, tx, identityOf(user))
		return err
	})

	switch {
	case err == nil:
		s.logger.Debug(ctx, "refresh token rotated", "user_id", claims.UserID)
		return pair, nil
	case errors.Is(err, common.ErrorNotFound):
		s.onRefreshMiss(ctx, claims.UserID)
		return nil, common.Unauthorized("Invalid Refresh Token")
	case common.IsKind(err, common.KindNotFound):
		return nil, err
	default:
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
}

// onRefreshMiss handles a validly signed token that matches no active record:
// it was already consumed, revoked, or purged.
func (s *SessionService) onRefreshMiss(ctx context.Context, userID string) {
	if !s.cfg.RevokeFamilyOnReuse {
		s.logger.Warn(ctx, "refresh token not active", "user_id", userID)
		return
	}

	n, err := s.ledger.RevokeAllForOwner(ctx, s.db, userID)
	if err != nil {
		s.logger.Error(ctx, "revoke on reuse failed", "user_id", userID, "error", err)
		return
	}
	s.logger.Warn(ctx, "refresh token reuse, sessions revoked", "user_id", userID, "revoked", n)
}

// Logout revokes every refresh token of userID. It is idempotent.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	n, err := s.ledger.RevokeAllForOwner(ctx, s.db, userID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.logger.Info(ctx, "user logged out", "user_id", userID, "revoked", n)
	return nil
}

// ForgotPassword mails a reset link when email belongs to an identity.
// Unknown emails succeed silently.
func (s *SessionService) ForgotPassword(ctx context.Context, email string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := s.codec.GenerateOpaqueToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	if _, err := repo.Update(ctx, user.ID, models.UserUpdate{
		Reset: &models.ExpiringSecret{Value: token, ExpiresAt: s.now().Add(s.cfg.ResetTokenValidity)},
	}); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	body, err := mailer.ResetBody(s.cfg.FrontendURL, token)
	if err != nil {
		return err
	}
	return s.send(ctx, user.Email, mailer.SubjectReset, body)
}

// ResetPassword sets a new password for the holder of token, clears the
// token and revokes all sessions. The token is consumed by a conditional
// write, so it can be spent at most once.
func (s *SessionService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}
	if token == "" {
		return common.BadRequest("Invalid or expired reset token")
	}

	now := s.now()
	if _, err := s.repomanager.Users(s.db).GetByResetToken(ctx, token, now); err != nil {
		if isNotFound(err) {
			return common.BadRequest("Invalid or expired reset token")
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var userID string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).ConsumeResetToken(ctx, token, hash, now)
		if err != nil {
			if isNotFound(err) {
				return common.BadRequest("Invalid or expired reset token")
			}
			return fmt.Errorf("consume reset token: %w", err)
		}
		if _, err := s.ledger.RevokeAllForOwner(ctx, tx, user.ID); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		userID = user.ID
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "password reset", "user_id", userID)
	return nil
}

// ChangePassword replaces the password of an authenticated identity and
// revokes all of its sessions.
func (s *SessionService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return common.BadRequest("Current password is incorrect")
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.passwords.Verify(user.PasswordHash, currentPassword)
	if err != nil {
		return fmt.Errorf("verify password for %s: %w", user.ID, err)
	}
	if !ok {
		return common.BadRequest("Current password is incorrect")
	}

	if err := s.replacePassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "user_id", user.ID)
	return nil
}

// GetProfile returns the public view of userID.
func (s *SessionService) GetProfile(ctx context.Context, userID string) (*PublicUser, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, common.NotFound("User not found")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	pu := newPublicUser(user)
	return &pu, nil
}

// --- helpers below ---

func identityOf(u *models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func (s *SessionService) issuePair(ctx context.Context, db dbx.DBTX, id auth.Identity) (*TokenPair, error) {
	id.TokenID = ""
	access, err := s.codec.SignAccess(id)
	if err != nil {
		return nil, err
	}

	// the refresh jti addresses its ledger record
	id.TokenID = uuid.NewString()
	refresh, err := s.codec.SignRefresh(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.Issue(ctx, db, id.UserID, id.TokenID, refresh, s.codec.RefreshTTL()); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// replacePassword rehashes and stores the password and revokes every refresh
// token in one transaction.
func (s *SessionService) replacePassword(ctx context.Context, userID, password string) error {
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	upd := models.UserUpdate{PasswordHash: &hash}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).Update(ctx, userID, upd); err != nil {
			return fmt.Errorf("store password: %w", err)
		}
		if _, err := s.ledger.RevokeAllForOwner(ctx, tx, userID); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		return nil
	})
}

// newVerificationCode draws codes until one is not pending for any identity.
func (s *SessionService) newVerificationCode(ctx context.Context, repo users.Repository) (string, error) {
	var code string
	for i := 0; i < codeAttempts; i++ {
		var err error
		code, err = s.codec.GenerateOneTimeCode()
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}

		_, err = repo.GetByVerificationCode(ctx, code, s.now())
		if isNotFound(err) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
	}
	return code, nil
}

func (s *SessionService) sendVerification(ctx context.Context, to, subject, code string) error {
	body, err := mailer.VerificationBody(code, s.cfg.VerificationCodeValidity)
	if err != nil {
		return err
	}
	return s.send(ctx, to, subject, body)
}

func (s *SessionService) send(ctx context.Context, to, subject, body string) error {
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		s.logger.Error(ctx, "email dispatch failed", "to", to, "subject", subject, "error", err)
		return fmt.Errorf("send %q email: %w", subject, err)
	}
	return nil
}
