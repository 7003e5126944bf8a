package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, first_name, last_name, profile_image, role, is_verified,
		verification_code, verification_code_expires_at, reset_token, reset_token_expires_at,
		created_at, updated_at`

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, is_verified,
			verification_code, verification_code_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	code, codeExp := secretArgs(user.Verification)

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, string(user.Role), user.IsVerified,
		code, codeExp,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByVerificationCode(ctx context.Context, code string, now time.Time) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users
		WHERE verification_code = $1 AND verification_code_expires_at > $2
		ORDER BY created_at DESC LIMIT 1`, code, now)
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users
		WHERE reset_token = $1 AND reset_token_expires_at > $2`, token, now)
}

func (r *PostgresRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error) {
	query := `UPDATE users
		SET password_hash = $3, reset_token = NULL, reset_token_expires_at = NULL, updated_at = now()
		WHERE reset_token = $1 AND reset_token_expires_at > $2
		RETURNING ` + userColumns

	return r.getOne(ctx, query, token, now, passwordHash)
}

// Update writes only the non-nil fields of upd. Each one-time secret is
// written or cleared together with its expiry column.
func (r *PostgresRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	if upd.Empty() {
		return r.GetByID(ctx, id)
	}

	var (
		sets []string
		args = []any{id}
	)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.PasswordHash != nil {
		set("password_hash", *upd.PasswordHash)
	}
	if upd.IsVerified != nil {
		set("is_verified", *upd.IsVerified)
	}
	if upd.Verification != nil {
		code, exp := secretArgs(*upd.Verification)
		set("verification_code", code)
		set("verification_code_expires_at", exp)
	}
	if upd.Reset != nil {
		token, exp := secretArgs(*upd.Reset)
		set("reset_token", token)
		set("reset_token_expires_at", exp)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + `, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	return r.getOne(ctx, query, args...)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u                    models.User
		role                 string
		code, reset          sql.NullString
		codeExpiry, resetExp sql.NullTime
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.ProfileImage, &role, &u.IsVerified,
		&code, &codeExpiry, &reset, &resetExp,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Role = models.Role(role)
	if code.Valid {
		u.Verification = models.ExpiringSecret{Value: code.String, ExpiresAt: codeExpiry.Time}
	}
	if reset.Valid {
		u.Reset = models.ExpiringSecret{Value: reset.String, ExpiresAt: resetExp.Time}
	}
	return &u, nil
}

// secretArgs maps a zero secret to SQL NULLs for both columns.
func secretArgs(s models.ExpiringSecret) (sql.NullString, sql.NullTime) {
	if s.IsZero() {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: s.Value, Valid: true}, sql.NullTime{Time: s.ExpiresAt, Valid: true}
}
