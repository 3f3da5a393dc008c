package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"account_service/internal/lib/hash"
	sl "account_service/internal/lib/logger"
	"account_service/internal/lib/random"
	"account_service/internal/mail"
	"account_service/internal/models"
)

var (
	ErrInvalidToken    = errors.New("invalid verification token")
	ErrExpiredToken    = errors.New("verification token expired")
	ErrAlreadyVerified = errors.New("email already verified")
	ErrMailDelivery    = errors.New("mail delivery failed")
)

const secretBytes = 32

type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	FindByID(ctx context.Context, id string) (models.Account, error)
	Update(ctx context.Context, account *models.Account) error
}

// Service владеет охраняемыми секретами аккаунта и их переходами:
// выдать секрет -> доставить вне канала -> погасить в пределах окна ->
// изменить состояние аккаунта.
type Service struct {
	log       *slog.Logger
	accounts  AccountStore
	mailer    mail.Dispatcher
	verifyTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

func New(
	log *slog.Logger,
	accounts AccountStore,
	mailer mail.Dispatcher,
	verifyTTL, resetTTL time.Duration,
) *Service {
	return &Service{
		log:       log,
		accounts:  accounts,
		mailer:    mailer,
		verifyTTL: verifyTTL,
		resetTTL:  resetTTL,
		now:       time.Now,
	}
}

// * IssueVerify выдает секрет подтверждения почты: заполняет verify-слот
// хешем, сохраняет аккаунт и отправляет сырой секрет на email. Отправка
// обязана пройти, иначе операция считается проваленной.
func (s *Service) IssueVerify(ctx context.Context, account *models.Account) error {
	const op = "verification.IssueVerify"

	log := s.log.With(slog.String("op", op))

	if account.IsVerified {
		return ErrAlreadyVerified
	}

	secret, slot, err := s.newSlot(s.verifyTTL)
	if err != nil {
		log.Error("failed to generate verify secret", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	account.VerifySlot = slot

	if err := s.accounts.Update(ctx, account); err != nil {
		log.Error("failed to persist verify slot", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := mail.Message{
		Email:     account.Email,
		AccountID: account.ID,
		Secret:    secret,
	}

	if err := s.mailer.Send(ctx, mail.KindVerifyEmail, msg); err != nil {
		log.Error("failed to send verification mail", sl.Err(err))
		return ErrMailDelivery
	}

	log.Info("verification secret issued", slog.String("account_id", account.ID))

	return nil
}

// * RedeemVerify гасит секрет подтверждения. Пустой слот и неверный секрет
// для вызывающего неразличимы: по ответу нельзя прощупать наличие слота.
// Просроченный слот остается на месте, пока его не перезапишет новая выдача.
func (s *Service) RedeemVerify(ctx context.Context, account *models.Account, secret string) error {
	const op = "verification.RedeemVerify"

	log := s.log.With(slog.String("op", op))

	if err := s.checkSlot(account.VerifySlot, secret); err != nil {
		return err
	}

	account.IsVerified = true
	account.VerifySlot = nil

	if err := s.accounts.Update(ctx, account); err != nil {
		log.Error("failed to persist verified state", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified", slog.String("account_id", account.ID))

	return nil
}

// * IssueReset выдает секрет сброса пароля. В отличие от verify выдается
// всегда, без предусловий.
func (s *Service) IssueReset(ctx context.Context, account *models.Account) error {
	const op = "verification.IssueReset"

	log := s.log.With(slog.String("op", op))

	secret, slot, err := s.newSlot(s.resetTTL)
	if err != nil {
		log.Error("failed to generate reset secret", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	account.ResetSlot = slot

	if err := s.accounts.Update(ctx, account); err != nil {
		log.Error("failed to persist reset slot", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := mail.Message{
		Email:     account.Email,
		AccountID: account.ID,
		Secret:    secret,
	}

	if err := s.mailer.Send(ctx, mail.KindForgotPassword, msg); err != nil {
		log.Error("failed to send reset mail", sl.Err(err))
		return ErrMailDelivery
	}

	log.Info("reset secret issued", slog.String("account_id", account.ID))

	return nil
}

// * RedeemReset гасит секрет сброса и ставит новый пароль. Подтверждающее
// письмо отправляется по принципу fire-and-forget.
func (s *Service) RedeemReset(ctx context.Context, account *models.Account, secret, newPassword string) error {
	const op = "verification.RedeemReset"

	log := s.log.With(slog.String("op", op))

	if err := s.checkSlot(account.ResetSlot, secret); err != nil {
		return err
	}

	passHash, err := hash.Hash(newPassword)
	if err != nil {
		log.Error("failed to hash new password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	account.PassHash = passHash
	account.ResetSlot = nil

	if err := s.accounts.Update(ctx, account); err != nil {
		log.Error("failed to persist new password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := mail.Message{Email: account.Email}

	if err := s.mailer.Send(ctx, mail.KindResetPassword, msg); err != nil {
		log.Warn("failed to send reset confirmation", sl.Err(err))
	}

	log.Info("password reset", slog.String("account_id", account.ID))

	return nil
}

// VerifyUser загружает аккаунт и гасит секрет подтверждения.
func (s *Service) VerifyUser(ctx context.Context, accountID, secret string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	return s.RedeemVerify(ctx, &account, secret)
}

// ResendVerify повторно выдает секрет подтверждения по email.
func (s *Service) ResendVerify(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	return s.IssueVerify(ctx, &account)
}

// ForgotPassword выдает секрет сброса по email.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	return s.IssueReset(ctx, &account)
}

// ResetPassword загружает аккаунт и гасит секрет сброса.
func (s *Service) ResetPassword(ctx context.Context, accountID, secret, newPassword string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	return s.RedeemReset(ctx, &account, secret, newPassword)
}

func (s *Service) newSlot(ttl time.Duration) (string, *models.SecretSlot, error) {
	secret, err := random.Hex(secretBytes)
	if err != nil {
		return "", nil, err
	}

	secretHash, err := hash.Hash(secret)
	if err != nil {
		return "", nil, err
	}

	slot := &models.SecretSlot{
		TokenHash: secretHash,
		ExpiresAt: s.now().Add(ttl),
	}

	return secret, slot, nil
}

func (s *Service) checkSlot(slot *models.SecretSlot, secret string) error {
	if slot == nil {
		return ErrInvalidToken
	}

	if !hash.Verify(secret, slot.TokenHash) {
		return ErrInvalidToken
	}

	if !s.now().Before(slot.ExpiresAt) {
		return ErrExpiredToken
	}

	return nil
}
