package mongo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-service/internal/config"
	"social-service/internal/models"
	"social-service/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// postDoc — представление поста в коллекции posts.
type postDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	UserID        primitive.ObjectID `bson:"user_id"`
	Subject       string             `bson:"subject"`
	Content       string             `bson:"content"`
	Media         []mediaDoc         `bson:"media,omitempty"`
	Tags          []string           `bson:"tags,omitempty"`
	LikesCount    int64              `bson:"likes_count"`
	CommentsCount int64              `bson:"comments_count"`
	Visibility    string             `bson:"visibility"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

type mediaDoc struct {
	Type string `bson:"type"`
	URL  string `bson:"url"`
}

func (d *postDoc) toModel() *models.Post {
	media := make([]models.Media, 0, len(d.Media))
	for _, m := range d.Media {
		media = append(media, models.Media{Type: m.Type, URL: m.URL})
	}

	return &models.Post{
		ID:            d.ID.Hex(),
		UserID:        d.UserID.Hex(),
		Subject:       d.Subject,
		Content:       d.Content,
		Media:         media,
		Tags:          d.Tags,
		LikesCount:    d.LikesCount,
		CommentsCount: d.CommentsCount,
		Visibility:    d.Visibility,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// encodeCursor кодирует пару (created_at, _id) в непрозрачный токен для клиента.
func encodeCursor(t time.Time, id primitive.ObjectID) string {
	raw := fmt.Sprintf("%d|%s", t.UTC().UnixNano(), id.Hex())

	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor декодирует токен обратно в пару ключей.
func decodeCursor(token string) (time.Time, primitive.ObjectID, error) {
	res, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, primitive.NilObjectID, err
	}

	parts := strings.SplitN(string(res), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, primitive.NilObjectID, fmt.Errorf("bad parts")
	}

	var nanos int64
	if _, err := fmt.Sscan(parts[0], &nanos); err != nil {
		return time.Time{}, primitive.NilObjectID, err
	}

	oid, err := primitive.ObjectIDFromHex(parts[1])
	if err != nil {
		return time.Time{}, primitive.NilObjectID, err
	}

	return time.Unix(0, nanos).UTC(), oid, nil
}

// limitOrDefault приводит запрошенный размер страницы к [Default, Max].
func limitOrDefault(cfg *config.Config, pageSize int32) int64 {
	lim := pageSize
	if lim <= 0 {
		lim = cfg.Limits.Default
	}

	if lim > cfg.Limits.Max {
		lim = cfg.Limits.Max
	}

	return int64(lim)
}

// CreatePost создаёт пост с нулевыми счётчиками.
func (m *Mongo) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	const op = "storage/mongo/CreatePost"

	uid, err := primitive.ObjectIDFromHex(strings.TrimSpace(post.UserID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	now := millis(time.Now())

	media := make([]mediaDoc, 0, len(post.Media))
	for _, md := range post.Media {
		media = append(media, mediaDoc{Type: md.Type, URL: md.URL})
	}

	doc := postDoc{
		UserID:        uid,
		Subject:       post.Subject,
		Content:       post.Content,
		Media:         media,
		Tags:          post.Tags,
		LikesCount:    0,
		CommentsCount: 0,
		Visibility:    post.Visibility,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	res, err := m.posts.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected inserted id type %T", op, res.InsertedID)
	}

	doc.ID = oid

	return doc.toModel(), nil
}

// PostByID возвращает пост по hex ObjectID.
func (m *Mongo) PostByID(ctx context.Context, id string) (*models.Post, error) {
	const op = "storage/mongo/PostByID"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc postDoc
	if err := m.posts.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: find: %w", op, err)
	}

	return doc.toModel(), nil
}

// ListPosts возвращает страницу постов, сначала новые.
// Курсор — пара (created_at, _id), страница = limit+1 для определения наличия
// следующей страницы.
func (m *Mongo) ListPosts(ctx context.Context, userID string, p models.ListParams) (*models.PostPage, error) {
	const op = "storage/mongo/ListPosts"

	filter := bson.D{}
	if strings.TrimSpace(userID) != "" {
		uid, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
		}
		filter = append(filter, bson.E{Key: "user_id", Value: uid})
	}

	if p.PageToken != "" {
		createdAt, oid, err := decodeCursor(p.PageToken)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidCursor)
		}

		// Строгое «меньше» по паре ключей (created_at DESC, _id DESC).
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "created_at", Value: bson.D{{Key: "$lt", Value: createdAt}}}},
			bson.D{
				{Key: "created_at", Value: createdAt},
				{Key: "_id", Value: bson.D{{Key: "$lt", Value: oid}}},
			},
		}})
	}

	limit := limitOrDefault(m.cfg, p.PageSize)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := m.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	page := &models.PostPage{}
	hasMore := int64(len(docs)) > limit
	if hasMore {
		docs = docs[:limit]
	}

	page.Items = make([]models.Post, 0, len(docs))
	for i := range docs {
		page.Items = append(page.Items, *docs[i].toModel())
	}

	if hasMore {
		last := docs[len(docs)-1]
		page.NextPageToken = encodeCursor(last.CreatedAt, last.ID)
	}

	return page, nil
}

// UpdatePost обновляет subject/content/tags. Nil-поля остаются как были.
func (m *Mongo) UpdatePost(ctx context.Context, id string, subject, content *string, tags []string) (*models.Post, error) {
	const op = "storage/mongo/UpdatePost"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	set := bson.D{{Key: "updated_at", Value: millis(time.Now())}}
	if subject != nil {
		set = append(set, bson.E{Key: "subject", Value: *subject})
	}
	if content != nil {
		set = append(set, bson.E{Key: "content", Value: *content})
	}
	if tags != nil {
		set = append(set, bson.E{Key: "tags", Value: tags})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc postDoc
	err = m.posts.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: update: %w", op, err)
	}

	return doc.toModel(), nil
}

// DeletePost удаляет пост. Лайки/комментарии остаются на совести TTL/фоновой
// очистки — каскад здесь не нужен для консистентности чтения.
func (m *Mongo) DeletePost(ctx context.Context, id string) (bool, error) {
	const op = "storage/mongo/DeletePost"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.posts.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return false, fmt.Errorf("%s: delete: %w", op, err)
	}

	return res.DeletedCount > 0, nil
}
