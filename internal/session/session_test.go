package session

import (
	"context"
	"testing"
	"time"

	"account_service/internal/lib/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore — хранилище сессий в памяти для тестов Verifier.
type fakeStore struct {
	entries map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]string)}
}

func (f *fakeStore) Put(_ context.Context, accountID, refreshToken string, _ time.Duration) error {
	f.entries[accountID] = refreshToken
	return nil
}

func (f *fakeStore) Get(_ context.Context, accountID string) (string, error) {
	val, ok := f.entries[accountID]
	if !ok {
		return "", ErrNoSession
	}
	return val, nil
}

func (f *fakeStore) Delete(_ context.Context, accountID string) error {
	delete(f.entries, accountID)
	return nil
}

func TestVerifyRefreshToken_Valid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	codec := token.NewCodec("account-service", "refresh-secret", time.Hour)
	store := newFakeStore()
	verifier := NewVerifier(codec, store)

	tok, err := codec.Sign("acc-1")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "acc-1", tok, time.Hour))

	accountID, ok := verifier.VerifyRefreshToken(ctx, tok)
	assert.True(t, ok)
	assert.Equal(t, "acc-1", accountID)
}

func TestVerifyRefreshToken_Garbage(t *testing.T) {
	t.Parallel()

	codec := token.NewCodec("account-service", "refresh-secret", time.Hour)
	verifier := NewVerifier(codec, newFakeStore())

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, ok := verifier.VerifyRefreshToken(context.Background(), tok)
		assert.False(t, ok, "token %q must be invalid", tok)
	}
}

func TestVerifyRefreshToken_WrongCodec(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	accessCodec := token.NewCodec("account-service", "access-secret", time.Hour)
	refreshCodec := token.NewCodec("account-service", "refresh-secret", time.Hour)
	store := newFakeStore()
	verifier := NewVerifier(refreshCodec, store)

	// токен подписан access-секретом: даже лежащий в хранилище, он не
	// должен проходить
	tok, err := accessCodec.Sign("acc-1")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "acc-1", tok, time.Hour))

	_, ok := verifier.VerifyRefreshToken(ctx, tok)
	assert.False(t, ok)
}

func TestVerifyRefreshToken_Expired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	codec := token.NewCodec("account-service", "refresh-secret", -1*time.Second)
	store := newFakeStore()
	verifier := NewVerifier(codec, store)

	tok, err := codec.Sign("acc-1")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "acc-1", tok, time.Hour))

	_, ok := verifier.VerifyRefreshToken(ctx, tok)
	assert.False(t, ok)
}

func TestVerifyRefreshToken_NoEntry(t *testing.T) {
	t.Parallel()

	codec := token.NewCodec("account-service", "refresh-secret", time.Hour)
	verifier := NewVerifier(codec, newFakeStore())

	tok, err := codec.Sign("acc-1")
	require.NoError(t, err)

	_, ok := verifier.VerifyRefreshToken(context.Background(), tok)
	assert.False(t, ok)
}

func TestVerifyRefreshToken_SupersededByRotation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	codec := token.NewCodec("account-service", "refresh-secret", time.Hour)
	store := newFakeStore()
	verifier := NewVerifier(codec, store)

	t1, err := codec.Sign("acc-1")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "acc-1", t1, time.Hour))

	time.Sleep(time.Second) // чтобы iat/exp отличались и t2 != t1

	t2, err := codec.Sign("acc-1")
	require.NoError(t, err)
	require.NotEqual(t, t1, t2)
	require.NoError(t, store.Put(ctx, "acc-1", t2, time.Hour))

	_, ok := verifier.VerifyRefreshToken(ctx, t1)
	assert.False(t, ok, "superseded token must be invalid even though unexpired")

	accountID, ok := verifier.VerifyRefreshToken(ctx, t2)
	assert.True(t, ok)
	assert.Equal(t, "acc-1", accountID)
}
