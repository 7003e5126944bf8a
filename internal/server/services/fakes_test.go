package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	refreshtokensrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// --- users ---

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]models.User
	getErr  error
	lookups int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]models.User{}}
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	f.byID[cp.ID] = cp
	return &cp, nil
}

func (f *fakeUsers) find(match func(models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.Email == email })
}

func (f *fakeUsers) GetByVerificationCode(ctx context.Context, code string, now time.Time) (*models.User, error) {
	return f.find(func(u models.User) bool {
		return u.Verification.Value == code && u.Verification.ExpiresAt.After(now)
	})
}

func (f *fakeUsers) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	return f.find(func(u models.User) bool {
		return u.Reset.Value == token && u.Reset.ExpiresAt.After(now)
	})
}

func (f *fakeUsers) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.byID {
		if u.Reset.Value == token && u.Reset.ExpiresAt.After(now) {
			u.PasswordHash = passwordHash
			u.Reset = models.ExpiringSecret{}
			f.byID[id] = u
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.IsVerified != nil {
		u.IsVerified = *upd.IsVerified
	}
	if upd.Verification != nil {
		u.Verification = *upd.Verification
	}
	if upd.Reset != nil {
		u.Reset = *upd.Reset
	}
	f.byID[id] = u
	return &u, nil
}

func (f *fakeUsers) byEmail(t *testing.T, email string) models.User {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u
		}
	}
	t.Fatalf("no user %q", email)
	return models.User{}
}

// --- refresh tokens ---

type fakeTokens struct {
	mu      sync.Mutex
	recs    []*models.RefreshToken
	seq     int64
	findErr error
}

func (f *fakeTokens) Create(ctx context.Context, t *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t.CreatedAt = time.Unix(0, f.seq)
	cp := *t
	f.recs = append(f.recs, &cp)
	return nil
}

func (f *fakeTokens) FindActiveByUser(ctx context.Context, userID string, now time.Time) ([]models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []models.RefreshToken
	for _, r := range f.recs {
		if r.UserID == userID && r.Active(now) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTokens) FindActiveByTokenID(ctx context.Context, tokenID string, now time.Time) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, r := range f.recs {
		if r.TokenID == tokenID && r.Active(now) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTokens) FindLatestActive(ctx context.Context, userID string, now time.Time) (*models.RefreshToken, error) {
	recs, err := f.FindActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, common.ErrorNotFound
	}
	return &recs[0], nil
}

func (f *fakeTokens) Revoke(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recs {
		if r.ID == id && !r.Revoked {
			r.Revoked = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTokens) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.recs {
		if r.UserID == userID && !r.Revoked {
			r.Revoked = true
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.recs[:0]
	var n int64
	for _, r := range f.recs {
		if r.ExpiresAt.After(now) {
			kept = append(kept, r)
		} else {
			n++
		}
	}
	f.recs = kept
	return n, nil
}

func (f *fakeTokens) activeCount(userID string, now time.Time) int {
	recs, _ := f.FindActiveByUser(context.Background(), userID, now)
	return len(recs)
}

// --- repo manager ---

type fakeRepoManager struct {
	u *fakeUsers
	r *fakeTokens
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error            { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }

// --- mailer ---

type sentMail struct {
	To, Subject, HTML string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, html})
	return nil
}

func (m *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	return m.sent[len(m.sent)-1]
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// --- harness ---

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func cheapHasher() *cryptox.Argon2idHasher {
	return cryptox.NewArgon2idHasher(cryptox.Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
}

// newSQLiteDB returns an in-memory database used only for real BEGIN/COMMIT.
func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type harness struct {
	svc    *SessionService
	ledger *RefreshLedger
	users  *fakeUsers
	tokens *fakeTokens
	mail   *recordingMailer
	cfg    *config.Config
	now    time.Time
}

func (h *harness) setNow(t time.Time) {
	h.now = t
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	hasher := cheapHasher()
	codec, err := auth.NewCodec(auth.CodecConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     cfg.AccessTokenValidityDuration,
		RefreshTTL:    cfg.RefreshTokenValidityDuration,
	}, hasher)
	require.NoError(t, err)

	h := &harness{
		users:  newFakeUsers(),
		tokens: &fakeTokens{},
		mail:   &recordingMailer{},
		cfg:    cfg,
		now:    testNow,
	}
	rm := &fakeRepoManager{u: h.users, r: h.tokens}
	clock := func() time.Time { return h.now }

	h.ledger = NewRefreshLedger(rm, codec, logging.Nop{})
	h.ledger.now = clock

	h.svc = NewSessionService(newSQLiteDB(t), rm, hasher, codec, h.ledger, h.mail, cfg, logging.Nop{})
	h.svc.now = clock
	return h
}

// activeUser registers and verifies an identity and returns its id.
func (h *harness) activeUser(t *testing.T, email, password string) string {
	t.Helper()
	ctx := context.Background()

	u, err := h.svc.Register(ctx, RegisterInput{Email: email, Password: password, FirstName: "Test"})
	require.NoError(t, err)
	code := h.users.byEmail(t, u.Email).Verification.Value
	require.NoError(t, h.svc.VerifyEmail(ctx, code))
	return u.ID
}
