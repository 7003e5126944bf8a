package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

var userCols = []string{
	"id", "email", "password_hash", "first_name", "last_name", "profile_image", "role", "is_verified",
	"verification_code", "verification_code_expires_at", "reset_token", "reset_token_expires_at",
	"created_at", "updated_at",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const insertQ = `(?s)^\s*INSERT\s+INTO\s+users\s*\(id,\s*email,\s*password_hash,.*\)\s*VALUES\s*\(\$1,.*\$9\)\s*RETURNING\s+created_at,\s*updated_at\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	exp := now.Add(30 * time.Minute)

	mock.ExpectQuery(insertQ).
		WithArgs("u-1", "a@x.io", "hash", "Ann", "", "USER", false,
			sql.NullString{String: "123456", Valid: true}, sql.NullTime{Time: exp, Valid: true}).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &models.User{
		ID: "u-1", Email: "a@x.io", PasswordHash: "hash", FirstName: "Ann", Role: models.RoleUser,
		Verification: models.ExpiringSecret{Value: "123456", ExpiresAt: exp},
	}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at not populated: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.User{ID: "u-1", Email: "a@x.io", Role: models.RoleUser})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ID: "u-1", Email: "a@x.io"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	exp := now.Add(time.Hour)
	rows := sqlmock.NewRows(userCols).
		AddRow("u-1", "a@x.io", "hash", "Ann", "Lee", "", "ADMIN", true, nil, nil, "tok", exp, now, now)

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`).
		WithArgs("a@x.io").
		WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "a@x.io")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "u-1" || got.Role != models.RoleAdmin || !got.IsVerified {
		t.Fatalf("unexpected user: %+v", got)
	}
	if !got.Verification.IsZero() {
		t.Fatalf("expected no verification code, got %+v", got.Verification)
	}
	if got.Reset.Value != "tok" || !got.Reset.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected reset secret: %+v", got.Reset)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "nope")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestGetByVerificationCode_FiltersExpiry(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)WHERE\s+verification_code\s*=\s*\$1\s+AND\s+verification_code_expires_at\s*>\s*\$2`).
		WithArgs("123456", now).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByVerificationCode(context.Background(), "123456", now)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByResetToken_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	exp := now.Add(time.Hour)
	rows := sqlmock.NewRows(userCols).
		AddRow("u-1", "a@x.io", "hash", "", "", "", "USER", true, nil, nil, "tok", exp, now, now)

	mock.ExpectQuery(`(?s)WHERE\s+reset_token\s*=\s*\$1\s+AND\s+reset_token_expires_at\s*>\s*\$2`).
		WithArgs("tok", now).
		WillReturnRows(rows)

	got, err := repo.GetByResetToken(context.Background(), "tok", now)
	if err != nil {
		t.Fatalf("GetByResetToken error: %v", err)
	}
	if got.Reset.Value != "tok" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

const consumeResetQ = `(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$3,\s*reset_token\s*=\s*NULL,\s*reset_token_expires_at\s*=\s*NULL,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+reset_token\s*=\s*\$1\s+AND\s+reset_token_expires_at\s*>\s*\$2\s+RETURNING`

func TestConsumeResetToken_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(consumeResetQ).
		WithArgs("tok", now, "new-hash").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "a@x.io", "new-hash", "", "", "", "USER", true, nil, nil, nil, nil, now, now))

	got, err := repo.ConsumeResetToken(context.Background(), "tok", "new-hash", now)
	if err != nil {
		t.Fatalf("ConsumeResetToken error: %v", err)
	}
	if got.PasswordHash != "new-hash" || !got.Reset.IsZero() {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConsumeResetToken_AlreadySpent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(consumeResetQ).
		WithArgs("tok", now, "new-hash").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.ConsumeResetToken(context.Background(), "tok", "new-hash", now)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestUpdate_SetsAndClears(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	hash := "new-hash"
	rows := sqlmock.NewRows(userCols).
		AddRow("u-1", "a@x.io", hash, "", "", "", "USER", true, nil, nil, nil, nil, now, now)

	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2,\s*reset_token\s*=\s*\$3,\s*reset_token_expires_at\s*=\s*\$4,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+RETURNING`).
		WithArgs("u-1", hash, sql.NullString{}, sql.NullTime{}).
		WillReturnRows(rows)

	got, err := repo.Update(context.Background(), "u-1", models.UserUpdate{
		PasswordHash: &hash,
		Reset:        &models.ExpiringSecret{},
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.PasswordHash != hash || !got.Reset.IsZero() {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	verified := true
	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+is_verified\s*=\s*\$2`).
		WithArgs("u-x", true).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), "u-x", models.UserUpdate{IsVerified: &verified})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestUpdate_EmptyReadsCurrent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*WHERE\s+id\s*=\s*\$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "a@x.io", "hash", "", "", "", "USER", false, nil, nil, nil, nil, now, now))

	got, err := repo.Update(context.Background(), "u-1", models.UserUpdate{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.ID != "u-1" {
		t.Fatalf("unexpected user: %+v", got)
	}
}
