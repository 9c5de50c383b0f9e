package middleware

import (
	"context"
	"net/http"
	"strings"

	"social-service/internal/models"
	"social-service/internal/service"
	"social-service/internal/transport/http/httperr"
)

type claimsKey struct{}

// ClaimsFrom возвращает claims аутентифицированного пользователя из контекста.
// ok=false означает, что запрос не прошёл через RequireAuth.
func ClaimsFrom(ctx context.Context) (models.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(models.Claims)
	return claims, ok
}

// IntoClaims кладёт claims в контекст запроса. Используется RequireAuth
// и тестами обработчиков.
func IntoClaims(ctx context.Context, claims models.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// bearerToken извлекает токен из заголовка Authorization.
// Пустая строка — заголовок отсутствует или имеет неверную схему.
func bearerToken(r *http.Request) string {
	raw := r.Header.Get("Authorization")
	if raw == "" {
		return ""
	}

	const prefix = "Bearer "
	if len(raw) < len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(raw[len(prefix):])
}

// RequireAuth проверяет access-токен и кладёт claims в контекст.
// Запросы без валидного токена завершаются 401 до вызова обработчика.
func RequireAuth(svc *service.Service) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httperr.WriteError(w, r, service.ErrInvalidToken)
				return
			}

			claims, err := svc.VerifyAccess(r.Context(), token)
			if err != nil {
				httperr.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(IntoClaims(r.Context(), claims)))
		})
	}
}
