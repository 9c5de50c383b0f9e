package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"social-service/internal/models"
	"social-service/internal/service"
	"social-service/internal/transport/http/middleware"
)

type mediaDTO struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type postDTO struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Subject       string    `json:"subject"`
	Content       string    `json:"content"`
	Media         []mediaDTO `json:"media,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	LikesCount    int64     `json:"likes_count"`
	CommentsCount int64     `json:"comments_count"`
	Visibility    string    `json:"visibility"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type createPostRequest struct {
	Subject    string   `json:"subject"`
	Content    string   `json:"content"`
	MediaURLs  []string `json:"media_urls,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Visibility string   `json:"visibility,omitempty"`
}

type updatePostRequest struct {
	Subject *string  `json:"subject,omitempty"`
	Content *string  `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

type postListResponse struct {
	Posts         []postDTO `json:"posts"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}

func toPostDTO(p *models.Post) postDTO {
	dto := postDTO{
		ID:            p.ID,
		UserID:        p.UserID,
		Subject:       p.Subject,
		Content:       p.Content,
		Tags:          p.Tags,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		Visibility:    p.Visibility,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	for _, m := range p.Media {
		dto.Media = append(dto.Media, mediaDTO{Type: m.Type, URL: m.URL})
	}
	return dto
}

// claims достаёт claims из контекста; отсутствие означает ошибку конфигурации
// роутера (маршрут не обёрнут в RequireAuth).
func claims(w http.ResponseWriter, r *http.Request) (models.Claims, bool) {
	c, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		writeError(w, r, service.ErrInvalidToken)
	}
	return c, ok
}

// CreatePost — POST /posts.
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.svc.CreatePost(r.Context(), c, service.CreatePostInput{
		Subject:    req.Subject,
		Content:    req.Content,
		MediaURLs:  req.MediaURLs,
		Tags:       req.Tags,
		Visibility: req.Visibility,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostDTO(post))
}

// Post — GET /posts/{id}.
func (h *Handlers) Post(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.PostByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostDTO(post))
}

// ListPosts — GET /posts?user_id=&page_size=&page_token=.
func (h *Handlers) ListPosts(w http.ResponseWriter, r *http.Request) {
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

	page, err := h.svc.ListPosts(r.Context(), service.ListPostsInput{
		UserID:    q.Get("user_id"),
		PageSize:  pageSize,
		PageToken: q.Get("page_token"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := postListResponse{
		Posts:         make([]postDTO, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for i := range page.Items {
		resp.Posts = append(resp.Posts, toPostDTO(&page.Items[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdatePost — PATCH /posts/{id}. Частичное обновление: nil-поля не трогаем.
func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	var req updatePostRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.svc.UpdatePost(r.Context(), c, chi.URLParam(r, "id"), service.UpdatePostInput{
		Subject: req.Subject,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostDTO(post))
}

// DeletePost — DELETE /posts/{id}.
func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	if _, err := h.svc.DeletePost(r.Context(), c, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
