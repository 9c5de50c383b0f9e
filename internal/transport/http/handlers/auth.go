package handlers

import (
	"log/slog"
	"net/http"

	logctx "social-service/internal/pkg/log"
	"social-service/internal/pkg/redact"
)

// Формат тел /auth/* зафиксирован контрактом фронта, поэтому имена полей
// здесь camelCase и не совпадают с остальным API.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string `json:"message"`
}

type loginRequest struct {
	Email string `json:"email"`
	Pass  string `json:"pass"`
}

type credentials struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Message          string      `json:"message"`
	LoginCredentials credentials `json:"loginCredentials"`
	Token            string      `json:"token"`
	RefreshToken     string      `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
}

type refreshCredentials struct {
	credentials
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Message         string             `json:"message"`
	UserCredentials refreshCredentials `json:"userCredentials"`
	AccessToken     string             `json:"accessToken"`
}

type identityRequest struct {
	IDToken string `json:"idToken"`
}

type identityResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Register — POST /auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelInfo, "user registered",
		slog.String("user_id", id),
		slog.String("email", redact.Email(req.Email)),
	)

	writeJSON(w, http.StatusOK, registerResponse{Message: "user registered"})
}

// Login — POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims, pair, err := h.svc.Login(r.Context(), req.Email, req.Pass)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "login successful",
		LoginCredentials: credentials{
			UserID:   claims.UserID,
			Email:    claims.Email,
			Username: claims.Username,
			Role:     claims.Role,
		},
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh — POST /auth/refresh. Ротация: предъявленный refresh-токен
// сгорает, клиент получает новую пару.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims, pair, err := h.svc.RotateTokens(r.Context(), req.UserID, req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		Message: "token refreshed",
		UserCredentials: refreshCredentials{
			credentials: credentials{
				UserID:   claims.UserID,
				Email:    claims.Email,
				Username: claims.Username,
				Role:     claims.Role,
			},
			RefreshToken: pair.RefreshToken,
		},
		AccessToken: pair.AccessToken,
	})
}

// Identity — POST /auth/identity. Проверка внешнего id-токена
// через настроенный Verifier.
func (h *Handlers) Identity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims, err := h.svc.VerifyIdentity(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, identityResponse{
		UID:   claims.UserID,
		Email: claims.Email,
	})
}
