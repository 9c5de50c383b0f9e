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

// UploadURL выдаёт presigned-ссылку на загрузку медиа-файла пользователя.
func (s *Service) UploadURL(ctx context.Context, claims models.Claims, contentType string, contentLength int64) (*storage.UploadInfo, error) {
	const op = "service/uploads/UploadURL"

	if s.files == nil {
		return nil, fmt.Errorf("%s: file storage is not configured", op)
	}

	info, err := s.files.UploadURL(ctx, claims.UserID, contentType, contentLength)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		log.From(ctx).Error("file storage error on UploadURL", "op", op, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return info, nil
}

// ConfirmUpload подтверждает загрузку по ключу и возвращает публичный URL.
func (s *Service) ConfirmUpload(ctx context.Context, claims models.Claims, key string) (string, error) {
	const op = "service/uploads/ConfirmUpload"

	if s.files == nil {
		return "", fmt.Errorf("%s: file storage is not configured", op)
	}

	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	url, err := s.files.ConfirmUpload(ctx, claims.UserID, key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return "", fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrInvalidArgument):
			return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		default:
			log.From(ctx).Error("file storage error on ConfirmUpload", "op", op, "err", err)
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	return url, nil
}
