package signup_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"account_service/internal/auth"
	"account_service/internal/http_server/handlers/signup"
	resp "account_service/internal/lib/api/response"
	"account_service/internal/lib/token"
	"account_service/internal/models"
	"account_service/internal/session"
	"account_service/internal/storage"

	"github.com/go-playground/validator/v10"
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
	cp := *account
	f.byID[account.ID] = &cp
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

type memSessions struct {
	entries map[string]string
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

type fakeVerifier struct{}

func (fakeVerifier) IssueVerify(_ context.Context, _ *models.Account) error { return nil }

func newHandler() http.HandlerFunc {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	accessCodec := token.NewCodec("account-service", "access-secret", time.Hour)
	refreshCodec := token.NewCodec("account-service", "refresh-secret", time.Hour)

	sessions := &memSessions{entries: make(map[string]string)}
	refresher := session.NewVerifier(refreshCodec, sessions)

	authService := auth.New(
		log, newFakeRepo(), sessions, refresher, fakeVerifier{},
		accessCodec, refreshCodec, time.Hour,
	)

	return signup.New(log, validator.New(), authService)
}

func doRequest(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/account-management/signup", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func TestSignup_Created(t *testing.T) {
	t.Parallel()

	handler := newHandler()

	rr := doRequest(t, handler, `{
		"firstname": "Ivan",
		"lastname": "Petrov",
		"email": "ivan@example.com",
		"password": "password123"
	}`)

	require.Equal(t, http.StatusCreated, rr.Code)

	var body signup.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	assert.Equal(t, resp.StatusOK, body.Status)
	assert.NotEmpty(t, body.AccessToken)
	assert.NotEmpty(t, body.RefreshToken)
	assert.NotEmpty(t, body.ID)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	t.Parallel()

	handler := newHandler()
	payload := `{
		"firstname": "Ivan",
		"lastname": "Petrov",
		"email": "ivan@example.com",
		"password": "password123"
	}`

	rr := doRequest(t, handler, payload)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(t, handler, payload)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "already in use")
}

func TestSignup_InvalidEmail(t *testing.T) {
	t.Parallel()

	handler := newHandler()

	rr := doRequest(t, handler, `{
		"firstname": "Ivan",
		"lastname": "Petrov",
		"email": "not-an-email",
		"password": "password123"
	}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "email")
}

func TestSignup_MissingFields(t *testing.T) {
	t.Parallel()

	handler := newHandler()

	rr := doRequest(t, handler, `{"email": "ivan@example.com"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSignup_MalformedBody(t *testing.T) {
	t.Parallel()

	handler := newHandler()

	rr := doRequest(t, handler, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
