package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account_service/internal/models"
	"account_service/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Storage — документный бэкенд репозитория аккаунтов, взаимозаменяем с
// postgres-бэкендом.
type Storage struct {
	client   *mongo.Client
	accounts *mongo.Collection
}

func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongo.New"

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	accounts := client.Database(database).Collection("accounts")

	// уникальность email обеспечивает индекс, как UNIQUE в postgres-схеме
	_, err = accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: failed to create index: %w", op, err)
	}

	return &Storage{
		client:   client,
		accounts: accounts,
	}, nil
}

type secretSlotDoc struct {
	TokenHash string    `bson:"token_hash"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type accountDoc struct {
	ID          string         `bson:"_id"`
	Firstname   string         `bson:"firstname"`
	Lastname    string         `bson:"lastname"`
	Email       string         `bson:"email"`
	PassHash    string         `bson:"password_hash"`
	IsActive    bool           `bson:"is_active"`
	IsVerified  bool           `bson:"is_verified"`
	Permissions []string       `bson:"permissions"`
	LastLogin   *time.Time     `bson:"last_login,omitempty"`
	VerifySlot  *secretSlotDoc `bson:"verify_slot,omitempty"`
	ResetSlot   *secretSlotDoc `bson:"reset_slot,omitempty"`
}

func (s *Storage) Create(ctx context.Context, account *models.Account) error {
	const op = "storage.mongo.Create"

	_, err := s.accounts.InsertOne(ctx, toDoc(account))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrAccountExists
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Storage) FindByID(ctx context.Context, id string) (models.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Storage) Update(ctx context.Context, account *models.Account) error {
	const op = "storage.mongo.Update"

	res, err := s.accounts.ReplaceOne(ctx, bson.M{"_id": account.ID}, toDoc(account))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return storage.ErrAccountNotFound
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	const op = "storage.mongo.Delete"

	_, err := s.accounts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) findOne(ctx context.Context, filter bson.M) (models.Account, error) {
	var doc accountDoc

	err := s.accounts.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Account{}, storage.ErrAccountNotFound
		}

		return models.Account{}, err
	}

	return fromDoc(&doc), nil
}

func toDoc(account *models.Account) *accountDoc {
	return &accountDoc{
		ID:          account.ID,
		Firstname:   account.Firstname,
		Lastname:    account.Lastname,
		Email:       account.Email,
		PassHash:    account.PassHash,
		IsActive:    account.IsActive,
		IsVerified:  account.IsVerified,
		Permissions: account.Permissions,
		LastLogin:   account.LastLogin,
		VerifySlot:  toSlotDoc(account.VerifySlot),
		ResetSlot:   toSlotDoc(account.ResetSlot),
	}
}

func fromDoc(doc *accountDoc) models.Account {
	return models.Account{
		ID:          doc.ID,
		Firstname:   doc.Firstname,
		Lastname:    doc.Lastname,
		Email:       doc.Email,
		PassHash:    doc.PassHash,
		IsActive:    doc.IsActive,
		IsVerified:  doc.IsVerified,
		Permissions: doc.Permissions,
		LastLogin:   doc.LastLogin,
		VerifySlot:  fromSlotDoc(doc.VerifySlot),
		ResetSlot:   fromSlotDoc(doc.ResetSlot),
	}
}

func toSlotDoc(slot *models.SecretSlot) *secretSlotDoc {
	if slot == nil {
		return nil
	}

	return &secretSlotDoc{
		TokenHash: slot.TokenHash,
		ExpiresAt: slot.ExpiresAt,
	}
}

func fromSlotDoc(doc *secretSlotDoc) *models.SecretSlot {
	if doc == nil {
		return nil
	}

	return &models.SecretSlot{
		TokenHash: doc.TokenHash,
		ExpiresAt: doc.ExpiresAt,
	}
}
