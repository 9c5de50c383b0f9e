// Package http собирает HTTP-роутер social-сервиса: маршруты, цепочку
// мидлваров и служебные эндпоинты.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"social-service/internal/config"
	"social-service/internal/service"
	"social-service/internal/transport/http/handlers"
	"social-service/internal/transport/http/middleware"
)

// NewRouter собирает chi-роутер.
//
// Цепочка мидлваров (снаружи внутрь):
// Recover → RequestID → Logging → CORS → Timeout; защищённые маршруты
// дополнительно проходят RequireAuth.
func NewRouter(cfg *config.Config, svc *service.Service, log *slog.Logger) http.Handler {
	h := handlers.New(svc)

	r := chi.NewRouter()

	r.Use(middleware.Recover())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS(""))
	r.Use(middleware.Timeout(cfg.Timeouts.Service))

	// Служебные эндпоинты: liveness без зависимостей, метрики Prometheus.
	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Аутентификация: только POST, preflight закрывает CORS-мидлвар.
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/identity", h.Identity)
	})

	// Лента доступна без токена, мутации и загрузки — только с ним.
	r.Get("/posts", h.ListPosts)
	r.Get("/posts/{id}", h.Post)
	r.Get("/posts/{id}/comments", h.ListComments)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(svc))

		r.Post("/posts", h.CreatePost)
		r.Patch("/posts/{id}", h.UpdatePost)
		r.Delete("/posts/{id}", h.DeletePost)

		r.Post("/posts/{id}/comments", h.AddComment)
		r.Post("/posts/{id}/like", h.LikePost)
		r.Delete("/posts/{id}/like", h.UnlikePost)

		r.Post("/uploads/presign", h.PresignUpload)
		r.Post("/uploads/confirm", h.ConfirmUpload)
	})

	return r
}
