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

// LikePost ставит лайк посту от имени пользователя из claims.
// Повторный лайк той же пары (post, user) — ErrConflict.
func (s *Service) LikePost(ctx context.Context, claims models.Claims, postID string) (*models.Like, error) {
	const op = "service/likes/LikePost"

	lg := log.From(ctx).With("op", op, "user_id", claims.UserID, "post_id", postID)

	if strings.TrimSpace(postID) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	like := models.Like{
		PostID: postID,
		UserID: claims.UserID,
	}

	result, err := s.storage.CreateLike(ctx, like)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			lg.Warn("already liked")
			return nil, fmt.Errorf("%s: %w", op, ErrConflict)
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("post not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrInvalidArgument):
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		default:
			lg.Error("storage error on CreateLike", "err", err)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return result, nil
}

// UnlikePost снимает лайк пользователя с поста.
func (s *Service) UnlikePost(ctx context.Context, claims models.Claims, postID string) error {
	const op = "service/likes/UnlikePost"

	lg := log.From(ctx).With("op", op, "user_id", claims.UserID, "post_id", postID)

	if strings.TrimSpace(postID) == "" {
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if err := s.storage.DeleteLike(ctx, postID, claims.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on DeleteLike", "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
