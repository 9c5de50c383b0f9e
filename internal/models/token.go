package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе или ротации.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — случайный секрет, который клиент хранит и предъявляет
//     для выпуска новой пары токенов; на сервере хранится только его хэш;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// RefreshToken — свежесгенерированный refresh-токен.
// Plain отдаётся клиенту ровно один раз и не персистится;
// в хранилище попадают только Hash и ExpiresAt.
type RefreshToken struct {
	Plain     string
	Hash      string
	ExpiresAt time.Time
}
