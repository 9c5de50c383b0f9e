package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"social-service/internal/models"
	"social-service/internal/pkg/log"
	"social-service/internal/pkg/redact"
	"social-service/internal/storage"
)

// Register регистрирует нового пользователя. Автологина нет: токены
// выдаются только явным Login.
//
// Дубликат email определяется уникальным индексом хранилища при вставке
// (storage.ErrAlreadyExists -> ErrEmailTaken) — без check-then-insert.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	const op = "service/auth/Register"

	lg := log.From(ctx).With("op", op)

	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	normEmail, err := validateEmail(email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := validatePassword(password); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		Username:     username,
		Email:        normEmail,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
	}

	id, err := s.storage.SaveUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			lg.Warn("register_email_taken", slog.String("email", redact.Email(normEmail)))
			return "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		lg.Error("register_save_failed", slog.String("err", err.Error()))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered", slog.String("user_id", id))

	return id, nil
}

// Login выполняет вход по email+пароль.
//
// На успех: создаётся новый refresh-токен (перезаписывая любой прежний —
// на пользователя живёт не более одной пары) и выпускается access-токен.
// Plain refresh-токен отдаётся ровно один раз, восстановить его из
// хранимого хэша невозможно.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Claims, *models.TokenPair, error) {
	const op = "service/auth/Login"

	lg := log.From(ctx).With("op", op)

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if len(password) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("login_unknown_email", slog.String("email", redact.Email(normEmail)))
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		lg.Error("login_lookup_failed", slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		lg.Warn("login_bad_password", slog.String("user_id", user.ID))
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	now := time.Now().UTC()

	refresh, err := s.newRefreshToken(now)
	if err != nil {
		lg.Error("login_refresh_generate_failed", slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SetRefreshToken(ctx, user.ID, refresh.Hash, refresh.ExpiresAt); err != nil {
		lg.Error("login_refresh_save_failed", slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	claims := models.ClaimsOf(user)

	accessToken, err := s.issueAccessToken(ctx, claims, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_logged_in", slog.String("user_id", user.ID))

	return &claims, &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refresh.Plain,
		AccessExpiresAt: now.Add(s.cfg.Auth.AccessTokenTTL),
	}, nil
}

// VerifyAccess проверяет access-токен и возвращает клеймы пользователя.
// Используется мидлваром аутентификации: полученные клеймы дальше передаются
// в обработчики явным объектом, а не неявным контекстным состоянием сервиса.
func (s *Service) VerifyAccess(ctx context.Context, accessToken string) (models.Claims, error) {
	const op = "service/auth/VerifyAccess"

	claims, err := s.verifyAccessToken(accessToken)
	if err != nil {
		return models.Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

// VerifyIdentity проверяет внешний identity-токен через подключённый verifier.
func (s *Service) VerifyIdentity(ctx context.Context, idToken string) (*models.Claims, error) {
	const op = "service/auth/VerifyIdentity"

	if s.verifier == nil {
		return nil, fmt.Errorf("%s: identity verifier is not configured", op)
	}

	if strings.TrimSpace(idToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		log.From(ctx).Warn("identity_verify_rejected", slog.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return &models.Claims{
		UserID:   identity.UID,
		Email:    identity.Email,
		Username: identity.Name,
	}, nil
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service/auth/hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service/auth/validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика по умолчанию: длина >= 8, хотя бы одна строчная, заглавная и цифра.
func validatePassword(pw string) error {
	const op = "service/auth/validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !(hasLower && hasUpper && hasDigit) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
