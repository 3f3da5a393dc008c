package smtp

import (
	"context"
	"fmt"

	"account_service/internal/mail"

	"gopkg.in/gomail.v2"
)

// Sender отправляет письма напрямую по SMTP, без очереди.
type Sender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func New(host string, port int, username, password, from string) *Sender {
	return &Sender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *Sender) Send(_ context.Context, kind mail.Kind, msg mail.Message) error {
	const op = "mail.smtp.Send"

	m := gomail.NewMessage()
	m.SetHeader("To", msg.Email)
	m.SetHeader("From", s.from)
	m.SetHeader("Subject", subject(kind))
	m.SetBody("text/plain", body(kind, msg))

	dialer := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func subject(kind mail.Kind) string {
	switch kind {
	case mail.KindVerifyEmail:
		return "Confirm your email address"
	case mail.KindForgotPassword:
		return "Reset your password"
	case mail.KindResetPassword:
		return "Your password was reset"
	case mail.KindUpdatePassword:
		return "Your password was changed"
	default:
		return "Account notification"
	}
}

func body(kind mail.Kind, msg mail.Message) string {
	switch kind {
	case mail.KindVerifyEmail:
		return fmt.Sprintf(
			"Use this token to confirm your email address: %s\nAccount: %s",
			msg.Secret, msg.AccountID,
		)
	case mail.KindForgotPassword:
		return fmt.Sprintf(
			"Use this token to reset your password: %s\nAccount: %s\nThe token expires in a few hours.",
			msg.Secret, msg.AccountID,
		)
	case mail.KindResetPassword:
		return "Your password was reset successfully. If this was not you, contact support."
	case mail.KindUpdatePassword:
		return "Your password was changed. If this was not you, contact support."
	default:
		return ""
	}
}
