// verify моделирует внешнюю проверку identity-токенов (Google/Firebase и
// аналоги) как подключаемую способность: сервис никогда не валидирует чужие
// токены локально, только через внешний verifier.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"social-service/internal/config"
)

// ErrUnauthorized — внешний verifier отверг токен.
var ErrUnauthorized = errors.New("unauthorized")

// IdentityClaims — подтверждённые внешним провайдером данные пользователя.
type IdentityClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Verifier проверяет внешний identity-токен и возвращает клеймы либо отказ.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*IdentityClaims, error)
}

// HTTPVerifier — Verifier поверх внешнего verification-эндпоинта.
type HTTPVerifier struct {
	url    string
	client *http.Client
}

// Проверка выполнения контракта.
var _ Verifier = (*HTTPVerifier)(nil)

// New создаёт HTTPVerifier по конфигу.
func New(cfg config.IdentityConfig) *HTTPVerifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPVerifier{
		url:    cfg.VerifyURL,
		client: &http.Client{Timeout: timeout},
	}
}

// Verify отправляет токен на внешний эндпоинт проверки.
// Любой не-200 ответ провайдера трактуется как отказ (ErrUnauthorized):
// различия между «битый», «просроченный» и «отозванный» наружу не отдаются.
func (v *HTTPVerifier) Verify(ctx context.Context, idToken string) (*IdentityClaims, error) {
	const op = "verify/Verify"

	if v.url == "" {
		return nil, fmt.Errorf("%s: verifier is not configured", op)
	}

	body, err := json.Marshal(map[string]string{"id_token": idToken})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	var claims IdentityClaims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	if claims.UID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	return &claims, nil
}
