package models

import "time"

// Comment — комментарий к посту.
type Comment struct {
	ID        string
	PostID    string
	UserID    string
	Text      string
	CreatedAt time.Time
}

// CommentPage — результат постраничной выдачи комментариев.
type CommentPage struct {
	Items         []Comment
	NextPageToken string
}
