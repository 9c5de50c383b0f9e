package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"social-service/internal/models"
	"social-service/internal/service"
)

type commentDTO struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type addCommentRequest struct {
	Text string `json:"text"`
}

type commentListResponse struct {
	Comments      []commentDTO `json:"comments"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

func toCommentDTO(c *models.Comment) commentDTO {
	return commentDTO{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}

// AddComment — POST /posts/{id}/comments.
func (h *Handlers) AddComment(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	var req addCommentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	comment, err := h.svc.AddComment(r.Context(), c, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCommentDTO(comment))
}

// ListComments — GET /posts/{id}/comments?page_size=&page_token=.
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var pageSize int32
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 0 {
			writeError(w, r, service.ErrInvalidArgument)
			return
		}
		pageSize = int32(n)
	}

	page, err := h.svc.ListComments(r.Context(), chi.URLParam(r, "id"), pageSize, q.Get("page_token"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := commentListResponse{
		Comments:      make([]commentDTO, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for i := range page.Items {
		resp.Comments = append(resp.Comments, toCommentDTO(&page.Items[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}
