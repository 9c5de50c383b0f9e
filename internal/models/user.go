// Package models содержит доменные сущности social-сервиса.
package models

import "time"

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User — внутренняя доменная модель пользователя (MongoDB).
//
// Важно:
//   - ID — hex-представление ObjectID MongoDB; наружу/вовнутрь
//     конвертируется слоем storage.
//   - PasswordHash — bcrypt-хэш; исходный пароль нигде не хранится.
//   - RefreshTokenHash/RefreshTokenExpiresAt — текущий refresh-токен
//     пользователя (хэш + срок действия). На пользователя существует не
//     более одного действующего refresh-токена: ротация перезаписывает
//     пару, никогда не добавляет новую.
type User struct {
	ID                    string
	Username              string
	Email                 string
	PasswordHash          string
	Role                  string
	RefreshTokenHash      string
	RefreshTokenExpiresAt time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Claims — данные пользователя, зашиваемые в access-токен.
type Claims struct {
	UserID   string
	Email    string
	Username string
	Role     string
}

// ClaimsOf собирает Claims из записи пользователя.
func ClaimsOf(u *User) Claims {
	return Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
	}
}
