package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type likeDTO struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikePost — POST /posts/{id}/like. Повторный лайк того же пользователя — 409.
func (h *Handlers) LikePost(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	like, err := h.svc.LikePost(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, likeDTO{
		ID:        like.ID,
		PostID:    like.PostID,
		UserID:    like.UserID,
		CreatedAt: like.CreatedAt,
	})
}

// UnlikePost — DELETE /posts/{id}/like.
func (h *Handlers) UnlikePost(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	if err := h.svc.UnlikePost(r.Context(), c, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
