// storage описывает контракты хранилища social-сервиса и его сентинельные
// ошибки. Реализация для MongoDB находится в подпакете mongo, для
// медиа-файлов — в подпакете minio.
package storage

import (
	"context"
	"errors"
	"time"

	"social-service/internal/models"
)

var (
	// ErrNotFound — сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict — конфликт уникальности (повторный лайк и т.п.).
	ErrConflict = errors.New("conflict")
	// ErrInvalidCursor — битый/чужой page_token.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrInvalidArgument — некорректные входные параметры (битый id и т.п.).
	ErrInvalidArgument = errors.New("invalid argument")
)

// UserStorage выполняет операции над пользователями и их refresh-токенами.
type UserStorage interface {
	// SaveUser создаёт нового пользователя. Уникальность email обеспечивает
	// индекс БД: нарушение транслируется в ErrAlreadyExists (никакого
	// предварительного чтения перед вставкой).
	SaveUser(ctx context.Context, user *models.User) (string, error)
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по hex ObjectID.
	UserByID(ctx context.Context, id string) (*models.User, error)
	// SetRefreshToken безусловно перезаписывает пару (хэш, срок действия)
	// refresh-токена пользователя. Используется при логине.
	SetRefreshToken(ctx context.Context, userID, hash string, expiresAt time.Time) error
	// RotateRefreshToken атомарно заменяет пару refresh-токена при условии,
	// что в записи всё ещё хранится oldHash (compare-and-swap). Возвращает
	// false, если условие не выполнено: токен уже ротирован конкурентным
	// запросом или отозван.
	RotateRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) (bool, error)
	// ClearExpiredRefreshTokens снимает просроченные refresh-токены со всех
	// пользователей. Возвращает число очищенных записей.
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// PostStorage выполняет операции над постами.
type PostStorage interface {
	// CreatePost создаёт пост и возвращает его с заполненными ID/таймстампами.
	CreatePost(ctx context.Context, post models.Post) (*models.Post, error)
	// PostByID возвращает пост по его hex ObjectID. Если записи нет — ErrNotFound.
	PostByID(ctx context.Context, id string) (*models.Post, error)
	// ListPosts возвращает страницу постов, сначала новые (created_at DESC).
	// userID == "" означает выдачу по всем авторам.
	// При некорректном page_token — ErrInvalidCursor.
	ListPosts(ctx context.Context, userID string, p models.ListParams) (*models.PostPage, error)
	// UpdatePost обновляет subject/content/tags поста. Nil-поля не трогаются.
	// Если записи нет — ErrNotFound.
	UpdatePost(ctx context.Context, id string, subject, content *string, tags []string) (*models.Post, error)
	// DeletePost удаляет пост. Возвращает false, если записи не было.
	DeletePost(ctx context.Context, id string) (bool, error)
}

// CommentStorage выполняет операции над комментариями.
type CommentStorage interface {
	// CreateComment создаёт комментарий и инкрементирует comments_count поста.
	// Если пост не найден — ErrNotFound.
	CreateComment(ctx context.Context, comment models.Comment) (*models.Comment, error)
	// ListComments возвращает страницу комментариев поста, сначала старые
	// (created_at ASC). При некорректном page_token — ErrInvalidCursor.
	ListComments(ctx context.Context, postID string, p models.ListParams) (*models.CommentPage, error)
}

// LikeStorage выполняет операции над лайками.
type LikeStorage interface {
	// CreateLike ставит лайк и инкрементирует likes_count поста.
	// Повторный лайк той же пары (post, user) — ErrConflict.
	CreateLike(ctx context.Context, like models.Like) (*models.Like, error)
	// DeleteLike снимает лайк и декрементирует likes_count.
	// Если лайка не было — ErrNotFound.
	DeleteLike(ctx context.Context, postID, userID string) error
}

// Storage задаёт контракт работы с документной БД.
type Storage interface {
	UserStorage
	PostStorage
	CommentStorage
	LikeStorage
	Close(ctx context.Context) error
}

// UploadInfo — результат генерации presigned-ссылки на загрузку.
type UploadInfo struct {
	UploadURL      string
	Key            string
	Expires        time.Duration
	RequiredHeader map[string]string
}

// FileStorage описывает операции над медиа-файлами (MinIO/S3).
type FileStorage interface {
	// UploadURL генерирует presigned PUT URL для загрузки файла пользователя.
	UploadURL(ctx context.Context, userID, contentType string, contentLength int64) (*UploadInfo, error)
	// ConfirmUpload подтверждает факт загрузки по key и возвращает публичный
	// URL объекта (или пустую строку, если public base не настроен).
	ConfirmUpload(ctx context.Context, userID, key string) (string, error)
}
