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

// Входные структуры сервисного слоя.

// CreatePostInput — создание поста.
// MediaURLs превращаются во вложения типа "image"; Visibility по умолчанию
// public.
type CreatePostInput struct {
	Subject    string
	Content    string
	MediaURLs  []string
	Tags       []string
	Visibility string
}

// UpdatePostInput — частичное обновление поста. Nil-поля не меняются.
type UpdatePostInput struct {
	Subject *string
	Content *string
	Tags    []string
}

// ListPostsInput — параметры постраничной выдачи постов.
type ListPostsInput struct {
	UserID    string
	PageSize  int32
	PageToken string
}

// CreatePost — бизнес-операция создания поста.
// Автор берётся из claims — клеймы приходят явным аргументом от
// аутентификационного мидлвара, сервис ничего не достаёт из контекста сам.
func (s *Service) CreatePost(ctx context.Context, claims models.Claims, in CreatePostInput) (*models.Post, error) {
	const op = "service/posts/CreatePost"

	lg := log.From(ctx).With("op", op, "user_id", claims.UserID)

	in.Subject = strings.TrimSpace(in.Subject)
	if in.Subject == "" {
		lg.Warn("invalid argument: empty subject")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		lg.Warn("invalid argument: empty content")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	visibility := in.Visibility
	switch visibility {
	case "":
		visibility = models.VisibilityPublic
	case models.VisibilityPublic, models.VisibilityFriends, models.VisibilityPrivate:
	default:
		lg.Warn("invalid argument: unknown visibility")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	media := make([]models.Media, 0, len(in.MediaURLs))
	for _, u := range in.MediaURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		media = append(media, models.Media{Type: "image", URL: u})
	}

	post := models.Post{
		UserID:     claims.UserID,
		Subject:    in.Subject,
		Content:    in.Content,
		Media:      media,
		Tags:       in.Tags,
		Visibility: visibility,
	}

	result, err := s.storage.CreatePost(ctx, post)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		lg.Error("storage error on CreatePost", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// PostByID возвращает пост по идентификатору.
func (s *Service) PostByID(ctx context.Context, id string) (*models.Post, error) {
	const op = "service/posts/PostByID"

	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		log.From(ctx).Error("storage error on PostByID", "op", op, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return post, nil
}

// ListPosts возвращает страницу постов (всех или одного автора).
func (s *Service) ListPosts(ctx context.Context, in ListPostsInput) (*models.PostPage, error) {
	const op = "service/posts/ListPosts"

	page, err := s.storage.ListPosts(ctx, in.UserID, models.ListParams{
		PageSize:  in.PageSize,
		PageToken: in.PageToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidCursor):
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		case errors.Is(err, storage.ErrInvalidArgument):
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		default:
			log.From(ctx).Error("storage error on ListPosts", "op", op, "err", err)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return page, nil
}

// UpdatePost обновляет пост. Разрешено только автору.
func (s *Service) UpdatePost(ctx context.Context, claims models.Claims, id string, in UpdatePostInput) (*models.Post, error) {
	const op = "service/posts/UpdatePost"

	lg := log.From(ctx).With("op", op, "user_id", claims.UserID, "post_id", id)

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on PostByID", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if post.UserID != claims.UserID {
		lg.Warn("update of foreign post denied")
		return nil, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	if in.Subject != nil {
		trimmed := strings.TrimSpace(*in.Subject)
		if trimmed == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}
		in.Subject = &trimmed
	}

	if in.Content != nil {
		trimmed := strings.TrimSpace(*in.Content)
		if trimmed == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}
		in.Content = &trimmed
	}

	result, err := s.storage.UpdatePost(ctx, id, in.Subject, in.Content, in.Tags)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on UpdatePost", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// DeletePost удаляет пост. Разрешено только автору.
// Возвращает true, если запись существовала и была удалена.
func (s *Service) DeletePost(ctx context.Context, claims models.Claims, id string) (bool, error) {
	const op = "service/posts/DeletePost"

	lg := log.From(ctx).With("op", op, "user_id", claims.UserID, "post_id", id)

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on PostByID", "err", err)
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if post.UserID != claims.UserID {
		lg.Warn("delete of foreign post denied")
		return false, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	deleted, err := s.storage.DeletePost(ctx, id)
	if err != nil {
		lg.Error("storage error on DeletePost", "err", err)
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return deleted, nil
}
