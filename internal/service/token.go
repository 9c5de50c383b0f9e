package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"social-service/internal/models"
	"social-service/internal/pkg/log"
	"social-service/internal/storage"
)

// refreshTokenBytes — энтропия refresh-токена: 48 случайных байт (384 бита).
const refreshTokenBytes = 48

type accessClaims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// issueAccessToken выпускает подписанный access-токен с клеймами пользователя.
// Операция чистая: никаких записей в хранилище, токен живёт cfg.AccessTokenTTL.
func (s *Service) issueAccessToken(ctx context.Context, claims models.Claims, now time.Time) (string, error) {
	const op = "service/token/issueAccessToken"

	lg := log.From(ctx)

	if s.cfg.Auth.JWTSecret == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNoSigningKey)
	}

	ac := accessClaims{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Username: claims.Username,
		Role:     claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Auth.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Auth.Issuer,
			Subject:   claims.UserID,
			Audience:  jwt.ClaimStrings(s.cfg.Auth.Audience),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ac)
	signed, err := token.SignedString([]byte(s.cfg.Auth.JWTSecret))
	if err != nil {
		lg.Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// verifyAccessToken валидирует access-токен: подпись, алгоритм, issuer,
// audience и срок действия. Просрочка отличима от прочих отказов
// (ErrTokenExpired против ErrInvalidToken) — это нужно клиентам, чтобы
// решить, идти ли на refresh.
func (s *Service) verifyAccessToken(tokenStr string) (models.Claims, error) {
	const op = "service/token/verifyAccessToken"

	if s.cfg.Auth.JWTSecret == "" {
		return models.Claims{}, fmt.Errorf("%s: %w", op, ErrNoSigningKey)
	}

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.Auth.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Auth.Issuer),
		jwt.WithAudience(s.cfg.Auth.Audience...),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Claims{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return models.Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return models.Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return models.Claims{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// newRefreshToken генерирует refresh-токен: 48 случайных байт → base64url,
// хэш — sha256 от plain-значения. Plain отдаётся клиенту ровно один раз,
// в хранилище попадает только хэш + срок действия.
func (s *Service) newRefreshToken(now time.Time) (models.RefreshToken, error) {
	const op = "service/token/newRefreshToken"

	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	plain := base64.RawURLEncoding.EncodeToString(b)

	return models.RefreshToken{
		Plain:     plain,
		Hash:      hashRefreshToken(plain),
		ExpiresAt: now.Add(s.cfg.Auth.RefreshTokenTTL),
	}, nil
}

// hashRefreshToken — детерминированный односторонний хэш refresh-токена.
func hashRefreshToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))

	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RotateTokens обменивает валидный refresh-токен на новую пару токенов.
//
// Протокол:
//  1. Пользователь ищется по id; отсутствие — ErrUserNotFound.
//  2. Предъявленный токен хэшируется той же функцией, что и при выпуске.
//  3. Несовпадение хэша И просрочка хранимого токена сливаются в один
//     ErrInvalidToken — между «неверный» и «просроченный» нет ни разных
//     кодов, ни разного текста.
//  4. Замена пары в хранилище — compare-and-swap по предъявленному хэшу:
//     из двух конкурентных ротаций одного токена успешна ровно одна,
//     проигравшая получает тот же ErrInvalidToken. Это даёт строгую
//     одноразовость: однажды обменянный токен не обменивается повторно.
func (s *Service) RotateTokens(ctx context.Context, userID, presented string) (*models.Claims, *models.TokenPair, error) {
	const op = "service/token/RotateTokens"

	lg := log.From(ctx).With("op", op)

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_unknown_user")
			return nil, nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		lg.Error("refresh_user_lookup_failed", slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	presentedHash := hashRefreshToken(presented)

	stored := user.RefreshTokenHash
	match := stored != "" && hmac.Equal([]byte(presentedHash), []byte(stored))
	fresh := now.Before(user.RefreshTokenExpiresAt)

	if !match || !fresh {
		lg.Warn("refresh_rejected", slog.String("user_id", user.ID))
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	next, err := s.newRefreshToken(now)
	if err != nil {
		lg.Error("refresh_generate_failed", slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	swapped, err := s.storage.RotateRefreshToken(ctx, user.ID, presentedHash, next.Hash, next.ExpiresAt)
	if err != nil {
		lg.Error("refresh_rotate_failed", slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !swapped {
		// Конкурентная ротация успела раньше — предъявленный токен уже потреблён.
		lg.Warn("refresh_race_lost", slog.String("user_id", user.ID))
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims := models.ClaimsOf(user)

	accessToken, err := s.issueAccessToken(ctx, claims, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return &claims, &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    next.Plain,
		AccessExpiresAt: now.Add(s.cfg.Auth.AccessTokenTTL),
	}, nil
}
