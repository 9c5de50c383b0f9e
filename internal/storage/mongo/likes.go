package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"social-service/internal/models"
	"social-service/internal/pkg/log"
	"social-service/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// likeDoc — представление лайка в коллекции likes.
type likeDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	PostID    primitive.ObjectID `bson:"post_id"`
	UserID    primitive.ObjectID `bson:"user_id"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *likeDoc) toModel() *models.Like {
	return &models.Like{
		ID:        d.ID.Hex(),
		PostID:    d.PostID.Hex(),
		UserID:    d.UserID.Hex(),
		CreatedAt: d.CreatedAt,
	}
}

// CreateLike ставит лайк и инкрементирует likes_count поста.
// Повторный лайк ловится уникальным индексом uniq_post_user: дубликат
// вставки — это ErrConflict, счётчик при этом не трогаем.
func (m *Mongo) CreateLike(ctx context.Context, like models.Like) (*models.Like, error) {
	const op = "storage/mongo/CreateLike"

	postOID, err := primitive.ObjectIDFromHex(strings.TrimSpace(like.PostID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	userOID, err := primitive.ObjectIDFromHex(strings.TrimSpace(like.UserID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	now := millis(time.Now())

	doc := likeDoc{
		PostID:    postOID,
		UserID:    userOID,
		CreatedAt: now,
	}

	ins, err := m.likes.InsertOne(ctx, doc)
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrConflict)
		}

		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	res, err := m.posts.UpdateByID(ctx, postOID, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "likes_count", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now}}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: inc post counter: %w", op, err)
	}

	if res.MatchedCount == 0 {
		// Пост исчез между вставкой лайка и инкрементом — подчистим лайк.
		if _, delErr := m.likes.DeleteOne(ctx, bson.D{{Key: "_id", Value: ins.InsertedID}}); delErr != nil {
			log.From(ctx).Warn("orphan like cleanup failed",
				"op", op, "post_id", like.PostID, "err", delErr)
		}

		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	oid, ok := ins.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected inserted id type %T", op, ins.InsertedID)
	}

	doc.ID = oid

	return doc.toModel(), nil
}

// DeleteLike снимает лайк и декрементирует likes_count поста.
func (m *Mongo) DeleteLike(ctx context.Context, postID, userID string) error {
	const op = "storage/mongo/DeleteLike"

	postOID, err := primitive.ObjectIDFromHex(strings.TrimSpace(postID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	userOID, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.likes.DeleteOne(ctx, bson.D{
		{Key: "post_id", Value: postOID},
		{Key: "user_id", Value: userOID},
	})
	if err != nil {
		return fmt.Errorf("%s: delete: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	// Лайк уже снят; неуспешный декремент оставляет likes_count завышенным.
	if _, incErr := m.posts.UpdateByID(ctx, postOID, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "likes_count", Value: -1}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: millis(time.Now())}}},
	}); incErr != nil {
		log.From(ctx).Warn("likes_count decrement failed",
			"op", op, "post_id", postID, "err", incErr)
	}

	return nil
}
