package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-service/internal/models"
	"social-service/internal/pkg/log"
	"social-service/internal/storage"
)

// AddComment — бизнес-операция создания комментария к посту.
// Счётчик comments_count поста инкрементируется хранилищем атомарно.
func (s *Service) AddComment(ctx context.Context, claims models.Claims, postID, text string) (*models.Comment, error) {
	const op = "service/comments/AddComment"

	lg := log.From(ctx).With("op", op, "user_id", claims.UserID, "post_id", postID)

	text = strings.TrimSpace(text)
	if text == "" {
		lg.Warn("invalid argument: empty text")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if strings.TrimSpace(postID) == "" {
		lg.Warn("invalid argument: empty post_id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	comment := models.Comment{
		PostID: postID,
		UserID: claims.UserID,
		Text:   text,
	}

	result, err := s.storage.CreateComment(ctx, comment)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("post not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrInvalidArgument):
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		default:
			lg.Error("storage error on CreateComment", "err", err)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return result, nil
}

// ListComments возвращает страницу комментариев поста.
func (s *Service) ListComments(ctx context.Context, postID string, pageSize int32, pageToken string) (*models.CommentPage, error) {
	const op = "service/comments/ListComments"

	if strings.TrimSpace(postID) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	page, err := s.storage.ListComments(ctx, postID, models.ListParams{
		PageSize:  pageSize,
		PageToken: pageToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrInvalidCursor):
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		default:
			log.From(ctx).Error("storage error on ListComments", "op", op, "err", err)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return page, nil
}
