package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"account_service/internal/lib/hash"
	sl "account_service/internal/lib/logger"
	"account_service/internal/lib/token"
	"account_service/internal/mail"
	"account_service/internal/models"
)

var (
	ErrAccessDenied    = errors.New("access denied")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidUpdate   = errors.New("invalid update request")
)

type AccountProvider interface {
	FindByID(ctx context.Context, id string) (models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) error
}

type SessionRevoker interface {
	Delete(ctx context.Context, accountID string) error
}

type EmailVerifier interface {
	IssueVerify(ctx context.Context, account *models.Account) error
}

// UpdateData — поля PATCH-запроса. Какая именно операция выполняется,
// определяется набором заполненных полей, как в исходном API.
type UpdateData struct {
	Firstname       string
	Lastname        string
	Email           string
	Password        string
	CurrentPassword string
	NewPassword     string
}

type Users struct {
	log         *slog.Logger
	accounts    AccountProvider
	sessions    SessionRevoker
	verifier    EmailVerifier
	mailer      mail.Dispatcher
	accessCodec *token.Codec
}

func New(
	log *slog.Logger,
	accounts AccountProvider,
	sessions SessionRevoker,
	verifier EmailVerifier,
	mailer mail.Dispatcher,
	accessCodec *token.Codec,
) *Users {
	return &Users{
		log:         log,
		accounts:    accounts,
		sessions:    sessions,
		verifier:    verifier,
		mailer:      mailer,
		accessCodec: accessCodec,
	}
}

// * Get возвращает аккаунт без хеша пароля. Доступ только к собственному
// аккаунту: subject access-токена обязан совпадать с запрошенным id.
func (u *Users) Get(ctx context.Context, id, accessToken string) (models.Account, error) {
	const op = "users.Get"

	log := u.log.With(slog.String("op", op))

	if err := u.authorize(id, accessToken); err != nil {
		return models.Account{}, err
	}

	account, err := u.accounts.FindByID(ctx, id)
	if err != nil {
		log.Warn("failed to get account", sl.Err(err))
		return models.Account{}, err
	}

	account.PassHash = ""

	return account, nil
}

// * Update выполняет одну из трех операций в зависимости от набора полей:
// смену email (требует текущий пароль и заново запускает подтверждение),
// смену пароля (требует текущий пароль) или обычное обновление профиля.
// Попытка протащить email или пароль через общий канал отклоняется.
func (u *Users) Update(ctx context.Context, id, accessToken string, data UpdateData) (models.Account, error) {
	const op = "users.Update"

	log := u.log.With(slog.String("op", op))

	if err := u.authorize(id, accessToken); err != nil {
		return models.Account{}, err
	}

	account, err := u.accounts.FindByID(ctx, id)
	if err != nil {
		log.Warn("failed to get account", sl.Err(err))
		return models.Account{}, err
	}

	switch {
	case data.Email != "" && data.Password != "":
		if !hash.Verify(data.Password, account.PassHash) {
			log.Info("email change rejected: wrong password")
			return models.Account{}, ErrInvalidPassword
		}

		account.Email = data.Email
		account.IsVerified = false

		if err := u.verifier.IssueVerify(ctx, &account); err != nil {
			log.Error("failed to re-issue verification", sl.Err(err))
			return models.Account{}, err
		}

		log.Info("email changed", slog.String("account_id", id))

	case data.CurrentPassword != "" && data.NewPassword != "":
		if !hash.Verify(data.CurrentPassword, account.PassHash) {
			log.Info("password change rejected: wrong password")
			return models.Account{}, ErrInvalidPassword
		}

		passHash, err := hash.Hash(data.NewPassword)
		if err != nil {
			log.Error("failed to hash new password", sl.Err(err))
			return models.Account{}, fmt.Errorf("%s: %w", op, err)
		}

		account.PassHash = passHash

		if err := u.accounts.Update(ctx, &account); err != nil {
			log.Error("failed to update account", sl.Err(err))
			return models.Account{}, fmt.Errorf("%s: %w", op, err)
		}

		msg := mail.Message{Email: account.Email}
		if err := u.mailer.Send(ctx, mail.KindUpdatePassword, msg); err != nil {
			log.Warn("failed to send password change notice", sl.Err(err))
		}

		log.Info("password changed", slog.String("account_id", id))

	case data.Email == "" && data.Password == "" &&
		data.CurrentPassword == "" && data.NewPassword == "":
		if data.Firstname != "" {
			account.Firstname = data.Firstname
		}
		if data.Lastname != "" {
			account.Lastname = data.Lastname
		}

		if err := u.accounts.Update(ctx, &account); err != nil {
			log.Error("failed to update account", sl.Err(err))
			return models.Account{}, fmt.Errorf("%s: %w", op, err)
		}

		log.Info("profile updated", slog.String("account_id", id))

	default:
		log.Info("contradictory update request")
		return models.Account{}, ErrInvalidUpdate
	}

	account.PassHash = ""

	return account, nil
}

// * Delete удаляет аккаунт и его сессию, чтобы живой refresh-токен не
// пережил аккаунт.
func (u *Users) Delete(ctx context.Context, id, accessToken string) error {
	const op = "users.Delete"

	log := u.log.With(slog.String("op", op))

	if err := u.authorize(id, accessToken); err != nil {
		return err
	}

	if _, err := u.accounts.FindByID(ctx, id); err != nil {
		log.Warn("failed to get account", sl.Err(err))
		return err
	}

	if err := u.accounts.Delete(ctx, id); err != nil {
		log.Error("failed to delete account", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := u.sessions.Delete(ctx, id); err != nil {
		log.Warn("failed to delete session", sl.Err(err))
	}

	log.Info("account deleted", slog.String("account_id", id))

	return nil
}

// authorize пускает только владельца: полная проверка подписи access-токена
// и строгое сравнение subject с запрошенным id. Ролей здесь нет.
func (u *Users) authorize(id, accessToken string) error {
	subject, err := u.accessCodec.Verify(accessToken)
	if err != nil {
		return ErrAccessDenied
	}

	if subject != id {
		return ErrAccessDenied
	}

	return nil
}
