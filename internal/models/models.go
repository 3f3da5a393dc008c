package models

import "time"

// SecretSlot — охраняемый секрет аккаунта: bcrypt-хеш одноразового токена и
// срок его действия. Оба поля ставятся и очищаются только вместе.
type SecretSlot struct {
	TokenHash string
	ExpiresAt time.Time
}

type Account struct {
	ID          string
	Firstname   string
	Lastname    string
	Email       string
	PassHash    string
	IsActive    bool
	IsVerified  bool
	Permissions []string
	LastLogin   *time.Time

	// nil — слот пуст, транзакция не запущена
	VerifySlot *SecretSlot
	ResetSlot  *SecretSlot
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccountID    string
}
