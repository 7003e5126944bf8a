// Package auth is the token codec: it signs and verifies access and refresh
// JWTs, hashes refresh bearer values for storage and mints one-time secrets.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the claim set shared by access and refresh tokens. TokenID is
// the jti: a sign call mints a fresh one when it is empty.
type Identity struct {
	UserID  string
	Email   string
	Role    models.Role
	TokenID string
}

// Claims is the JWT payload: registered claims (sub, exp, iat, jti) plus
// the identity's email and role.
type Claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// Hasher is the one-way hashing discipline applied to refresh bearer values.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(digest, plaintext string) (bool, error)
}

// CodecConfig holds the key material and lifetimes for both token kinds.
type CodecConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Codec signs and verifies tokens. Access and refresh tokens use distinct
// secrets so that leaking one key cannot forge the other kind.
type Codec struct {
	cfg    CodecConfig
	hasher Hasher
	now    func() time.Time
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg CodecConfig, hasher Hasher) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token secrets must not be empty")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	if hasher == nil {
		return nil, errors.New("hasher is required")
	}
	return &Codec{cfg: cfg, hasher: hasher, now: time.Now}, nil
}

// RefreshTTL is the lifetime of refresh tokens minted by the codec.
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

// SignAccess returns a short-lived access token for id.
func (c *Codec) SignAccess(id Identity) (string, error) {
	return c.sign(id, c.cfg.AccessSecret, c.cfg.AccessTTL)
}

// SignRefresh returns a long-lived refresh token for id.
func (c *Codec) SignRefresh(id Identity) (string, error) {
	return c.sign(id, c.cfg.RefreshSecret, c.cfg.RefreshTTL)
}

// VerifyAccess checks signature and expiry of an access token.
func (c *Codec) VerifyAccess(token string) (Identity, error) {
	return c.verify(token, c.cfg.AccessSecret)
}

// VerifyRefresh checks signature and expiry of a refresh token.
func (c *Codec) VerifyRefresh(token string) (Identity, error) {
	return c.verify(token, c.cfg.RefreshSecret)
}

// HashToken returns the storable digest of a refresh bearer value.
func (c *Codec) HashToken(token string) (string, error) {
	return c.hasher.Hash(token)
}

// VerifyHashedToken reports whether token matches digest.
func (c *Codec) VerifyHashedToken(token, digest string) (bool, error) {
	return c.hasher.Verify(digest, token)
}

// GenerateOneTimeCode returns a random 6-digit numeric code.
func (c *Codec) GenerateOneTimeCode() (string, error) {
	n, err := common.RandomIntRange(100000, 999999)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}

// GenerateOpaqueToken returns 32 random bytes as a hex string.
func (c *Codec) GenerateOpaqueToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (c *Codec) sign(id Identity, secret []byte, ttl time.Duration) (string, error) {
	now := c.now()
	jti := id.TokenID
	if jti == "" {
		jti = uuid.NewString()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// jti keeps two tokens minted within the same second distinct
			ID: jti,
		},
		Email: id.Email,
		Role:  id.Role,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *Codec) verify(tokenString string, secret []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{UserID: claims.Subject, Email: claims.Email, Role: claims.Role, TokenID: claims.ID}, nil
}
