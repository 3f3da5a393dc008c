package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account_service/internal/lib/token"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession возвращается, когда у аккаунта нет живой сессии.
var ErrNoSession = errors.New("no session entry")

const keyPrefix = "session:"

// TokenStore хранит привязку "аккаунт -> текущий refresh-токен".
// На один аккаунт существует не больше одной живой записи: Put безусловно
// перезаписывает предыдущую.
type TokenStore interface {
	Put(ctx context.Context, accountID, refreshToken string, ttl time.Duration) error
	Get(ctx context.Context, accountID string) (string, error)
	Delete(ctx context.Context, accountID string) error
}

type Store struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*Store, error) {
	const op = "session.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{
		client: client,
	}, nil
}

func (s *Store) Put(ctx context.Context, accountID, refreshToken string, ttl time.Duration) error {
	const op = "session.Put"

	err := s.client.Set(ctx, keyPrefix+accountID, refreshToken, ttl).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, accountID string) (string, error) {
	const op = "session.Get"

	val, err := s.client.Get(ctx, keyPrefix+accountID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return val, nil
}

// * Delete идемпотентен: отсутствие ключа не ошибка.
func (s *Store) Delete(ctx context.Context, accountID string) error {
	const op = "session.Delete"

	err := s.client.Del(ctx, keyPrefix+accountID).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Close закрывает соединение с хранилищем.
func (s *Store) Close() {
	s.client.Close()
}

// Verifier проверяет refresh-токены двойной проверкой: подпись с истечением
// срока плюс точное совпадение со строкой в хранилище сессий. Именно вторая
// проверка делает отзыв и ротацию работающими для самоподписанных токенов.
type Verifier struct {
	codec *token.Codec
	store TokenStore
}

func NewVerifier(codec *token.Codec, store TokenStore) *Verifier {
	return &Verifier{
		codec: codec,
		store: store,
	}
}

// VerifyRefreshToken возвращает id аккаунта и признак валидности. Любая
// ошибка подписи, срока или чтения из хранилища дает invalid.
func (v *Verifier) VerifyRefreshToken(ctx context.Context, refreshToken string) (string, bool) {
	accountID, err := v.codec.Verify(refreshToken)
	if err != nil {
		return "", false
	}

	stored, err := v.store.Get(ctx, accountID)
	if err != nil {
		return "", false
	}

	if stored != refreshToken {
		return "", false
	}

	return accountID, true
}
