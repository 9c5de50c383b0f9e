// Package handlers содержит HTTP-обработчики social-сервиса.
//
// Соглашения:
//   - тела запросов/ответов — JSON;
//   - ошибки доменного слоя конвертируются в единый формат httperr;
//   - claims аутентифицированного пользователя обработчики берут из
//     контекста (кладёт middleware.RequireAuth).
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"social-service/internal/service"
	"social-service/internal/transport/http/httperr"
)

// maxBodyBytes ограничивает размер JSON-тел, чтобы клиент не мог
// заставить сервис буферизовать произвольно большой запрос.
const maxBodyBytes = 1 << 20 // 1 MiB

// Handlers агрегирует HTTP-обработчики поверх доменного сервиса.
type Handlers struct {
	svc *service.Service
}

// New создаёт Handlers.
func New(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

// decode читает и декодирует JSON-тело запроса в dst.
// Неизвестные поля и мусор после объекта считаются ошибкой клиента.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return service.ErrInvalidArgument
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return service.ErrInvalidArgument
	}

	return nil
}

// writeJSON сериализует v со статусом status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError — локальный шорткат к httperr.WriteError.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	httperr.WriteError(w, r, err)
}
