// service содержит бизнес-логику social-сервиса: регистрацию/аутентификацию
// пользователей, выпуск/проверку/ротацию токенов и CRUD социальных сущностей
// через интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданные хранилища потокобезопасны.
//   - Ошибки возвращаются сентинелами и далее маппятся HTTP-слоем
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"social-service/internal/config"
	"social-service/internal/storage"
	"social-service/internal/verify"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — refresh-токен не совпадает с хранимым хэшем ЛИБО просрочен.
	// Намеренно один сентинел на оба случая: различие «неверный/просроченный»
	// наружу не отдаётся, чтобы не давать оракула. HTTP 401.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrTokenExpired — срок действия access-токена истёк. HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrUserNotFound — пользователь с таким id отсутствует. HTTP 401 в
	// контексте refresh-потока (не раскрываем существование аккаунтов).
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken — e-mail уже занят другим пользователем. HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidEmail — e-mail имеет некорректный формат. HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности. HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrInvalidArgument — неверные входные параметры запроса к сервису. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound — сущность (пост/комментарий/лайк) не найдена. HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrConflict — конфликт уникальности (повторный лайк). HTTP 409.
	ErrConflict = errors.New("conflict")

	// ErrPermissionDenied — операция над чужой сущностью. HTTP 403.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNoSigningKey — не сконфигурирован секрет подписи JWT.
	// Конфигурационная ошибка: HTTP 500, на старте — fail-fast через cleanenv.
	ErrNoSigningKey = errors.New("jwt signing key is not configured")
)

// Service описывает бизнес-логику social-сервиса.
type Service struct {
	storage  storage.Storage
	files    storage.FileStorage // может быть nil, если S3 не сконфигурирован
	verifier verify.Verifier     // может быть nil, если внешний verifier не задан
	cfg      config.Config
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.Config) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetFileStorage устанавливает хранилище медиа-файлов (опционально).
func (s *Service) SetFileStorage(f storage.FileStorage) {
	s.files = f
}

// SetIdentityVerifier устанавливает внешний identity-verifier (опционально).
func (s *Service) SetIdentityVerifier(v verify.Verifier) {
	s.verifier = v
}
