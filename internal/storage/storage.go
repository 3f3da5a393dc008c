package storage

import (
	"context"
	"errors"

	"account_service/internal/models"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

// AccountRepository — контракт хранилища аккаунтов. Бэкенд (postgres или
// mongo) выбирается при сборке приложения, логика сервисов от него не зависит.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	FindByID(ctx context.Context, id string) (models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) error
}
