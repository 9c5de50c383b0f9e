package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-service/internal/models"
	"social-service/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// userDoc — представление пользователя в коллекции users.
// Пустой refresh_token_hash означает отсутствие действующего refresh-токена.
type userDoc struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	Username              string             `bson:"username"`
	Email                 string             `bson:"email"`
	PasswordHash          string             `bson:"password_hash"`
	Role                  string             `bson:"role"`
	RefreshTokenHash      string             `bson:"refresh_token_hash,omitempty"`
	RefreshTokenExpiresAt time.Time          `bson:"refresh_token_expires_at,omitempty"`
	CreatedAt             time.Time          `bson:"created_at"`
	UpdatedAt             time.Time          `bson:"updated_at"`
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:                    d.ID.Hex(),
		Username:              d.Username,
		Email:                 d.Email,
		PasswordHash:          d.PasswordHash,
		Role:                  d.Role,
		RefreshTokenHash:      d.RefreshTokenHash,
		RefreshTokenExpiresAt: d.RefreshTokenExpiresAt,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}

// SaveUser вставляет нового пользователя.
// Уникальность email обеспечивает индекс uniq_email: конфликт вставки
// транслируется в storage.ErrAlreadyExists.
func (m *Mongo) SaveUser(ctx context.Context, user *models.User) (string, error) {
	const op = "storage/mongo/SaveUser"

	now := millis(time.Now())
	doc := userDoc{
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := m.users.InsertOne(ctx, doc)
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return "", fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("%s: unexpected inserted id type %T", op, res.InsertedID)
	}

	return oid.Hex(), nil
}

// UserByEmail находит пользователя по email.
func (m *Mongo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage/mongo/UserByEmail"

	var doc userDoc
	err := m.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: find: %w", op, err)
	}

	return doc.toModel(), nil
}

// UserByID находит пользователя по hex ObjectID.
// Битый идентификатор считается отсутствующей записью (ErrNotFound):
// наружу нет разницы между «нет такого id» и «id не бывает».
func (m *Mongo) UserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage/mongo/UserByID"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc userDoc
	err = m.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: find: %w", op, err)
	}

	return doc.toModel(), nil
}

// SetRefreshToken безусловно перезаписывает пару refresh-токена пользователя.
func (m *Mongo) SetRefreshToken(ctx context.Context, userID, hash string, expiresAt time.Time) error {
	const op = "storage/mongo/SetRefreshToken"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.users.UpdateByID(ctx, oid, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "refresh_token_hash", Value: hash},
			{Key: "refresh_token_expires_at", Value: millis(expiresAt)},
			{Key: "updated_at", Value: millis(time.Now())},
		}},
	})
	if err != nil {
		return fmt.Errorf("%s: update: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RotateRefreshToken атомарно заменяет refresh-токен при условии совпадения
// старого хэша. Фильтр по (_id, refresh_token_hash) превращает update в
// compare-and-swap: из двух конкурентных ротаций с одним и тем же токеном
// условие выполнится ровно у одной.
func (m *Mongo) RotateRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	const op = "storage/mongo/RotateRefreshToken"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "refresh_token_hash", Value: oldHash},
	}

	res, err := m.users.UpdateOne(ctx, filter, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "refresh_token_hash", Value: newHash},
			{Key: "refresh_token_expires_at", Value: millis(expiresAt)},
			{Key: "updated_at", Value: millis(time.Now())},
		}},
	})
	if err != nil {
		return false, fmt.Errorf("%s: update: %w", op, err)
	}

	return res.MatchedCount == 1, nil
}

// ClearExpiredRefreshTokens снимает просроченные refresh-токены.
func (m *Mongo) ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage/mongo/ClearExpiredRefreshTokens"

	filter := bson.D{
		{Key: "refresh_token_hash", Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: ""}}},
		{Key: "refresh_token_expires_at", Value: bson.D{{Key: "$lt", Value: millis(now)}}},
	}

	res, err := m.users.UpdateMany(ctx, filter, bson.D{
		{Key: "$unset", Value: bson.D{
			{Key: "refresh_token_hash", Value: ""},
			{Key: "refresh_token_expires_at", Value: ""},
		}},
	})
	if err != nil {
		return 0, fmt.Errorf("%s: update: %w", op, err)
	}

	return res.ModifiedCount, nil
}
