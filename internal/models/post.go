package models

import "time"

// Видимость поста.
const (
	VisibilityPublic  = "public"
	VisibilityFriends = "friends-only"
	VisibilityPrivate = "private"
)

// Media — вложение поста.
type Media struct {
	Type string
	URL  string
}

// Post — доменная модель поста (MongoDB).
//
//   - ID — hex ObjectID;
//   - UserID — автор (hex ObjectID пользователя);
//   - LikesCount/CommentsCount — денормализованные счётчики,
//     поддерживаются атомарными $inc при лайках/комментариях.
type Post struct {
	ID            string
	UserID        string
	Subject       string
	Content       string
	Media         []Media
	Tags          []string
	LikesCount    int64
	CommentsCount int64
	Visibility    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ListParams — базовые параметры постраничной выдачи.
type ListParams struct {
	PageSize  int32
	PageToken string
}

// PostPage — результат постраничной выдачи постов.
type PostPage struct {
	Items         []Post
	NextPageToken string
}
