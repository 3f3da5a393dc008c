package mail

import "context"

// Kind — тип письма. Письма с секретом несут одноразовый токен в открытом
// виде, подтверждающие письма секрета не содержат.
type Kind string

const (
	KindVerifyEmail    Kind = "verifyEmail"
	KindForgotPassword Kind = "forgotPassword"
	KindResetPassword  Kind = "resetPassword"
	KindUpdatePassword Kind = "updatePassword"
)

type Message struct {
	Email     string `json:"to"`
	AccountID string `json:"account_id,omitempty"`
	Secret    string `json:"token,omitempty"`
}

type Dispatcher interface {
	Send(ctx context.Context, kind Kind, msg Message) error
}
