package models

import "time"

// Like — отметка «нравится». На пару (PostID, UserID) существует не более
// одной записи, уникальность обеспечивается индексом хранилища.
type Like struct {
	ID        string
	PostID    string
	UserID    string
	CreatedAt time.Time
}
