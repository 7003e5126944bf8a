package client

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

const (
	keyEmail        = "email"
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

// Session is the locally persisted login state.
type Session struct {
	Email        string
	AccessToken  string
	RefreshToken string
}

// TokenStore persists the current session.
type TokenStore interface {
	// Load returns ErrNotLoggedIn when no session is stored.
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// MetadataTokenStore keeps the session in the metadata table.
type MetadataTokenStore struct {
	db *sql.DB
}

func NewMetadataTokenStore(db *sql.DB) *MetadataTokenStore {
	return &MetadataTokenStore{db: db}
}

func (s *MetadataTokenStore) Load(ctx context.Context) (Session, error) {
	repo := metadata.NewSQLiteRepository(s.db)

	var out Session
	for key, dst := range map[string]*string{
		keyEmail:        &out.Email,
		keyAccessToken:  &out.AccessToken,
		keyRefreshToken: &out.RefreshToken,
	} {
		v, err := repo.Get(ctx, key)
		if errors.Is(err, common.ErrorNotFound) {
			return Session{}, ErrNotLoggedIn
		}
		if err != nil {
			return Session{}, err
		}
		*dst = v
	}
	return out, nil
}

func (s *MetadataTokenStore) Save(ctx context.Context, sess Session) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyEmail, sess.Email); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyAccessToken, sess.AccessToken); err != nil {
			return err
		}
		return repo.Set(ctx, keyRefreshToken, sess.RefreshToken)
	})
}

func (s *MetadataTokenStore) Clear(ctx context.Context) error {
	return metadata.NewSQLiteRepository(s.db).Delete(ctx, keyEmail, keyAccessToken, keyRefreshToken)
}
