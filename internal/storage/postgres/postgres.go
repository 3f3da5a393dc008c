package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"account_service/internal/config"
	"account_service/internal/models"
	"account_service/internal/storage"
	"account_service/internal/storage/postgres/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	if err := runMigrations(ctx, dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return &Storage{pool: pool}, nil
}

func (s *Storage) Create(ctx context.Context, account *models.Account) error {
	const op = "storage.postgres.Create"

	query := `
		INSERT INTO accounts (
			id, firstname, lastname, email, password_hash,
			is_active, is_verified, permissions, last_login,
			verify_token_hash, verify_expires_at,
			reset_token_hash, reset_expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`

	verifyHash, verifyExp := slotColumns(account.VerifySlot)
	resetHash, resetExp := slotColumns(account.ResetSlot)

	_, err := s.pool.Exec(ctx, query,
		account.ID,
		account.Firstname,
		account.Lastname,
		account.Email,
		account.PassHash,
		account.IsActive,
		account.IsVerified,
		account.Permissions,
		account.LastLogin,
		verifyHash, verifyExp,
		resetHash, resetExp,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return storage.ErrAccountExists
		}

		return fmt.Errorf("%s: failed to create account: %w", op, err)
	}

	return nil
}

func (s *Storage) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	query := selectQuery + `WHERE email = $1;`

	return s.findOne(ctx, query, email)
}

func (s *Storage) FindByID(ctx context.Context, id string) (models.Account, error) {
	query := selectQuery + `WHERE id = $1;`

	return s.findOne(ctx, query, id)
}

func (s *Storage) Update(ctx context.Context, account *models.Account) error {
	const op = "storage.postgres.Update"

	query := `
		UPDATE accounts
		SET firstname = $2, lastname = $3, email = $4, password_hash = $5,
			is_active = $6, is_verified = $7, permissions = $8, last_login = $9,
			verify_token_hash = $10, verify_expires_at = $11,
			reset_token_hash = $12, reset_expires_at = $13,
			updated_at = now()
		WHERE id = $1;
	`

	verifyHash, verifyExp := slotColumns(account.VerifySlot)
	resetHash, resetExp := slotColumns(account.ResetSlot)

	tag, err := s.pool.Exec(ctx, query,
		account.ID,
		account.Firstname,
		account.Lastname,
		account.Email,
		account.PassHash,
		account.IsActive,
		account.IsVerified,
		account.Permissions,
		account.LastLogin,
		verifyHash, verifyExp,
		resetHash, resetExp,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrAccountNotFound
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	const op = "storage.postgres.Delete"

	query := `DELETE FROM accounts WHERE id = $1;`

	_, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Close() {
	s.pool.Close()
}

const selectQuery = `
	SELECT id, firstname, lastname, email, password_hash,
		is_active, is_verified, permissions, last_login,
		verify_token_hash, verify_expires_at,
		reset_token_hash, reset_expires_at
	FROM accounts
`

func (s *Storage) findOne(ctx context.Context, query string, arg any) (models.Account, error) {
	row := s.pool.QueryRow(ctx, query, arg)

	var (
		a                     models.Account
		verifyHash, resetHash *string
		verifyExp, resetExp   *time.Time
	)

	err := row.Scan(
		&a.ID,
		&a.Firstname,
		&a.Lastname,
		&a.Email,
		&a.PassHash,
		&a.IsActive,
		&a.IsVerified,
		&a.Permissions,
		&a.LastLogin,
		&verifyHash, &verifyExp,
		&resetHash, &resetExp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrAccountNotFound
		}

		return models.Account{}, err
	}

	a.VerifySlot = slotFromColumns(verifyHash, verifyExp)
	a.ResetSlot = slotFromColumns(resetHash, resetExp)

	return a, nil
}

// * runMigrations поднимает схему через goose поверх отдельного
// database/sql-соединения; пул pgx миграции не трогают.
func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)

	return goose.UpContext(ctx, db, ".")
}

// slotColumns разворачивает слот в пару nullable-колонок: обе заполнены
// или обе NULL.
func slotColumns(slot *models.SecretSlot) (*string, *time.Time) {
	if slot == nil {
		return nil, nil
	}

	return &slot.TokenHash, &slot.ExpiresAt
}

func slotFromColumns(tokenHash *string, expiresAt *time.Time) *models.SecretSlot {
	if tokenHash == nil || expiresAt == nil {
		return nil
	}

	return &models.SecretSlot{
		TokenHash: *tokenHash,
		ExpiresAt: *expiresAt,
	}
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
