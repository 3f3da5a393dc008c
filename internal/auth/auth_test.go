package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"account_service/internal/auth"
	"account_service/internal/lib/token"
	"account_service/internal/models"
	"account_service/internal/session"
	"account_service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	byID map[string]*models.Account
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[string]*models.Account)}
}

func (f *fakeRepo) FindByEmail(_ context.Context, email string) (models.Account, error) {
	for _, a := range f.byID {
		if a.Email == email {
			return *a, nil
		}
	}
	return models.Account{}, storage.ErrAccountNotFound
}

func (f *fakeRepo) Create(_ context.Context, account *models.Account) error {
	for _, a := range f.byID {
		if a.Email == account.Email {
			return storage.ErrAccountExists
		}
	}
	cp := *account
	f.byID[account.ID] = &cp
	return nil
}

func (f *fakeRepo) Update(_ context.Context, account *models.Account) error {
	if _, ok := f.byID[account.ID]; !ok {
		return storage.ErrAccountNotFound
	}
	cp := *account
	f.byID[account.ID] = &cp
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return storage.ErrAccountNotFound
	}
	delete(f.byID, id)
	return nil
}

// memSessions реализует и auth.SessionStore, и session.TokenStore, так что
// Verifier проверяет токены поверх того же хранилища, в которое пишет Auth.
type memSessions struct {
	entries map[string]string
}

func newMemSessions() *memSessions {
	return &memSessions{entries: make(map[string]string)}
}

func (m *memSessions) Put(_ context.Context, accountID, refreshToken string, _ time.Duration) error {
	m.entries[accountID] = refreshToken
	return nil
}

func (m *memSessions) Get(_ context.Context, accountID string) (string, error) {
	val, ok := m.entries[accountID]
	if !ok {
		return "", session.ErrNoSession
	}
	return val, nil
}

func (m *memSessions) Delete(_ context.Context, accountID string) error {
	delete(m.entries, accountID)
	return nil
}

type fakeVerifier struct {
	issued []string
	err    error
}

func (f *fakeVerifier) IssueVerify(_ context.Context, account *models.Account) error {
	if f.err != nil {
		return f.err
	}
	f.issued = append(f.issued, account.ID)
	return nil
}

type fixture struct {
	auth     *auth.Auth
	repo     *fakeRepo
	sessions *memSessions
	verifier *fakeVerifier
	refresh  *token.Codec
}

func newFixture() *fixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	accessCodec := token.NewCodec("account-service", "access-secret", time.Hour)
	refreshCodec := token.NewCodec("account-service", "refresh-secret", time.Hour)

	repo := newFakeRepo()
	sessions := newMemSessions()
	verifier := &fakeVerifier{}
	refresher := session.NewVerifier(refreshCodec, sessions)

	return &fixture{
		auth:     auth.New(log, repo, sessions, refresher, verifier, accessCodec, refreshCodec, time.Hour),
		repo:     repo,
		sessions: sessions,
		verifier: verifier,
		refresh:  refreshCodec,
	}
}

func TestSignup_Success(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture()

	pair, err := fx.auth.Signup(ctx, "Ivan", "Petrov", "ivan@example.com", "password123")
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEmpty(t, pair.AccountID)

	account, err := fx.repo.FindByEmail(ctx, "ivan@example.com")
	require.NoError(t, err)
	assert.Equal(t, pair.AccountID, account.ID)
	assert.True(t, account.IsActive)
	assert.False(t, account.IsVerified)
	assert.Equal(t, []string{"user"}, account.Permissions)
	assert.NotEqual(t, "password123", account.PassHash)

	assert.Equal(t, []string{account.ID}, fx.verifier.issued)
	assert.Equal(t, pair.RefreshToken, fx.sessions.entries[account.ID])
}

func TestSignup_DuplicateEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture()

	_, err := fx.auth.Signup(ctx, "Ivan", "Petrov", "ivan@example.com", "password123")
	require.NoError(t, err)

	_, err = fx.auth.Signup(ctx, "Another", "Ivan", "ivan@example.com", "other-pass")
	assert.ErrorIs(t, err, auth.ErrAccountExists)
}

func TestSignup_MailFailureRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture()
	mailErr := errors.New("mail delivery failed")
	fx.verifier.err = mailErr

	_, err := fx.auth.Signup(ctx, "Ivan", "Petrov", "ivan@example.com", "password123")
	assert.ErrorIs(t, err, mailErr)

	// провал доставки откатывает регистрацию целиком
	_, err = fx.repo.FindByEmail(ctx, "ivan@example.com")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
	assert.Empty(t, fx.sessions.entries)
}

func TestSignin_Success(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture()

	pair, err := fx.auth.Signup(ctx, "Ivan", "Petrov", "ivan@example.com", "password123")
	require.NoError(t, err)

	signinPair, err := fx.auth.Signin(ctx, "ivan@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, pair.AccountID, signinPair.AccountID)

	account, err := fx.repo.FindByEmail(ctx, "ivan@example.com")
	require.NoError(t, err)
	require.NotNil(t, account.LastLogin)
	assert.WithinDuration(t, time.Now().UTC(), *account.LastLogin, time.Minute)
}

func TestSignin_BadCredentialsIndistinguishable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture()

	_, err := fx.auth.Signup(ctx, "Ivan", "Petrov", "ivan@example.com", "password123")
	require.NoError(t, err)

	_, errWrongPass := fx.auth.Signin(ctx, "ivan@example.com", "wrong-password")
	assert.ErrorIs(t, errWrongPass, auth.ErrInvalidCredentials)

	_, errNoAccount := fx.auth.Signin(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, errNoAccount, auth.ErrInvalidCredentials)

	// по ответу нельзя узнать, существует ли аккаунт
	assert.Equal(t, errWrongPass, errNoAccount)
}

func TestSignin_SingleSessionPerAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture()

	first, err := fx.auth.Signup(ctx, "Ivan", "Petrov", "ivan@example.com", "password123")
	require.NoError(t, err)

	time.Sleep(time.Second) // iat в секундах, иначе токены совпадут

	second, err := fx.auth.Signin(ctx, "ivan@example.com", "password123")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = fx.auth.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)

	_, err = fx.auth.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_RotatesTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture()

	pair, err := fx.auth.Signup(ctx, "Ivan", "Petrov", "ivan@example.com", "password123")
	require.NoError(t, err)

	time.Sleep(time.Second)

	rotated, err := fx.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, pair.AccountID, rotated.AccountID)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// предъявленный токен вытеснен, хотя его срок еще не истек
	_, err = fx.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

func TestRefresh_Garbage(t *testing.T) {
	t.Parallel()

	fx := newFixture()

	_, err := fx.auth.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture()

	pair, err := fx.auth.Signup(ctx, "Ivan", "Petrov", "ivan@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, fx.auth.Revoke(ctx, pair.RefreshToken))

	_, err = fx.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)

	// повторный revoke того же токена уже не проходит проверку
	err = fx.auth.Revoke(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}
