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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// commentDoc — представление комментария в коллекции comments.
type commentDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	PostID    primitive.ObjectID `bson:"post_id"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *commentDoc) toModel() *models.Comment {
	return &models.Comment{
		ID:        d.ID.Hex(),
		PostID:    d.PostID.Hex(),
		UserID:    d.UserID.Hex(),
		Text:      d.Text,
		CreatedAt: d.CreatedAt,
	}
}

// CreateComment вставляет комментарий и инкрементирует comments_count поста.
// Существование поста проверяется самим инкрементом: matched=0 — поста нет.
func (m *Mongo) CreateComment(ctx context.Context, comment models.Comment) (*models.Comment, error) {
	const op = "storage/mongo/CreateComment"

	postOID, err := primitive.ObjectIDFromHex(strings.TrimSpace(comment.PostID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	userOID, err := primitive.ObjectIDFromHex(strings.TrimSpace(comment.UserID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	now := millis(time.Now())

	res, err := m.posts.UpdateByID(ctx, postOID, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "comments_count", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now}}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: inc post counter: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	doc := commentDoc{
		PostID:    postOID,
		UserID:    userOID,
		Text:      comment.Text,
		CreatedAt: now,
	}

	ins, err := m.comments.InsertOne(ctx, doc)
	if err != nil {
		// Откат счётчика при неуспешной вставке: без него comments_count
		// остаётся завышенным.
		if _, incErr := m.posts.UpdateByID(ctx, postOID, bson.D{
			{Key: "$inc", Value: bson.D{{Key: "comments_count", Value: -1}}},
		}); incErr != nil {
			log.From(ctx).Warn("comments_count rollback failed",
				"op", op, "post_id", comment.PostID, "err", incErr)
		}

		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := ins.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected inserted id type %T", op, ins.InsertedID)
	}

	doc.ID = oid

	return doc.toModel(), nil
}

// ListComments возвращает страницу комментариев поста, сначала старые
// (created_at ASC) — удобнее для постепенной подзагрузки.
func (m *Mongo) ListComments(ctx context.Context, postID string, p models.ListParams) (*models.CommentPage, error) {
	const op = "storage/mongo/ListComments"

	postOID, err := primitive.ObjectIDFromHex(strings.TrimSpace(postID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	filter := bson.D{{Key: "post_id", Value: postOID}}

	if p.PageToken != "" {
		createdAt, oid, err := decodeCursor(p.PageToken)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidCursor)
		}

		// Строгое «больше» по паре ключей (created_at ASC, _id ASC).
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "created_at", Value: bson.D{{Key: "$gt", Value: createdAt}}}},
			bson.D{
				{Key: "created_at", Value: createdAt},
				{Key: "_id", Value: bson.D{{Key: "$gt", Value: oid}}},
			},
		}})
	}

	limit := limitOrDefault(m.cfg, p.PageSize)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit + 1)

	cur, err := m.comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	page := &models.CommentPage{}
	hasMore := int64(len(docs)) > limit
	if hasMore {
		docs = docs[:limit]
	}

	page.Items = make([]models.Comment, 0, len(docs))
	for i := range docs {
		page.Items = append(page.Items, *docs[i].toModel())
	}

	if hasMore {
		last := docs[len(docs)-1]
		page.NextPageToken = encodeCursor(last.CreatedAt, last.ID)
	}

	return page, nil
}
