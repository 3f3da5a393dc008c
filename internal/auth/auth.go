package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"account_service/internal/lib/hash"
	sl "account_service/internal/lib/logger"
	"account_service/internal/lib/token"
	"account_service/internal/models"
	"account_service/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountExists       = errors.New("account already exists")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) error
}

type SessionStore interface {
	Put(ctx context.Context, accountID, refreshToken string, ttl time.Duration) error
	Delete(ctx context.Context, accountID string) error
}

type RefreshVerifier interface {
	VerifyRefreshToken(ctx context.Context, refreshToken string) (string, bool)
}

type EmailVerifier interface {
	IssueVerify(ctx context.Context, account *models.Account) error
}

type Auth struct {
	log          *slog.Logger
	accounts     AccountRepository
	sessions     SessionStore
	refresher    RefreshVerifier
	verifier     EmailVerifier
	accessCodec  *token.Codec
	refreshCodec *token.Codec
	refreshTTL   time.Duration
}

func New(
	log *slog.Logger,
	accounts AccountRepository,
	sessions SessionStore,
	refresher RefreshVerifier,
	verifier EmailVerifier,
	accessCodec, refreshCodec *token.Codec,
	refreshTTL time.Duration,
) *Auth {
	return &Auth{
		log:          log,
		accounts:     accounts,
		sessions:     sessions,
		refresher:    refresher,
		verifier:     verifier,
		accessCodec:  accessCodec,
		refreshCodec: refreshCodec,
		refreshTTL:   refreshTTL,
	}
}

// * Signup создает неподтвержденный аккаунт, выдает секрет подтверждения и
// пару токенов. Операция атомарна: если письмо не ушло, аккаунт удаляется.
func (a *Auth) Signup(
	ctx context.Context,
	firstname, lastname, email, password string,
) (models.TokenPair, error) {
	const op = "auth.Signup"

	log := a.log.With(slog.String("op", op))

	passHash, err := hash.Hash(password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	account := &models.Account{
		ID:          uuid.NewString(),
		Firstname:   firstname,
		Lastname:    lastname,
		Email:       email,
		PassHash:    passHash,
		IsActive:    true,
		Permissions: []string{"user"},
	}

	if err := a.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			log.Warn("email already registered")
			return models.TokenPair{}, ErrAccountExists
		}

		log.Error("failed to create account", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.verifier.IssueVerify(ctx, account); err != nil {
		log.Error("failed to issue verification, rolling back signup", sl.Err(err))

		if delErr := a.accounts.Delete(ctx, account.ID); delErr != nil {
			log.Error("failed to roll back account", sl.Err(delErr))
		}

		return models.TokenPair{}, err
	}

	pair, err := a.issueTokens(ctx, account.ID)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("account registered", slog.String("account_id", account.ID))

	return pair, nil
}

// * Signin проверяет учетные данные и выдает новую пару токенов. Неизвестный
// email и неверный пароль дают одну и ту же ошибку: по ответу нельзя узнать,
// существует ли аккаунт.
func (a *Auth) Signin(ctx context.Context, email, password string) (models.TokenPair, error) {
	const op = "auth.Signin"

	log := a.log.With(slog.String("op", op))

	account, err := a.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			log.Warn("account not found")
			return models.TokenPair{}, ErrInvalidCredentials
		}

		log.Error("failed to get account", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if !hash.Verify(password, account.PassHash) {
		log.Info("invalid password")
		return models.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := a.issueTokens(ctx, account.ID)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	account.LastLogin = &now

	if err := a.accounts.Update(ctx, &account); err != nil {
		log.Warn("failed to update last login", sl.Err(err))
	}

	log.Info("signed in", slog.String("account_id", account.ID))

	return pair, nil
}

// * Refresh ротирует пару токенов: предъявленный refresh-токен немедленно
// вытесняется новым, даже если его собственный срок еще не истек.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	accountID, ok := a.refresher.VerifyRefreshToken(ctx, refreshToken)
	if !ok {
		log.Warn("refresh token rejected")
		return models.TokenPair{}, ErrInvalidRefreshToken
	}

	pair, err := a.issueTokens(ctx, accountID)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens rotated", slog.String("account_id", accountID))

	return pair, nil
}

// * Revoke удаляет сессию аккаунта. Повторный вызов с тем же токеном уже
// не пройдет проверку и вернет ErrInvalidRefreshToken.
func (a *Auth) Revoke(ctx context.Context, refreshToken string) error {
	const op = "auth.Revoke"

	log := a.log.With(slog.String("op", op))

	accountID, ok := a.refresher.VerifyRefreshToken(ctx, refreshToken)
	if !ok {
		log.Warn("refresh token rejected")
		return ErrInvalidRefreshToken
	}

	if err := a.sessions.Delete(ctx, accountID); err != nil {
		log.Error("failed to delete session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("session revoked", slog.String("account_id", accountID))

	return nil
}

// issueTokens выпускает пару access+refresh и перезаписывает сессию,
// вытесняя прежний refresh-токен аккаунта.
func (a *Auth) issueTokens(ctx context.Context, accountID string) (models.TokenPair, error) {
	accessToken, err := a.accessCodec.Sign(accountID)
	if err != nil {
		return models.TokenPair{}, err
	}

	refreshToken, err := a.refreshCodec.Sign(accountID)
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := a.sessions.Put(ctx, accountID, refreshToken, a.refreshTTL); err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccountID:    accountID,
	}, nil
}
