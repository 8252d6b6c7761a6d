package api

import (
	"net/http"

	"github.com/dom/chatrelay/internal/api/handlers"
	"github.com/dom/chatrelay/internal/api/middleware"
	"github.com/dom/chatrelay/internal/config"
	"github.com/dom/chatrelay/internal/ratelimit"
	"github.com/dom/chatrelay/internal/repository"
	"github.com/dom/chatrelay/internal/service"
	"github.com/dom/chatrelay/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(services *service.Services, store repository.Pinger, limiter *ratelimit.Limiter, sessions *websocket.Registry, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(cfg.AllowedOrigin))

	authHandler := handlers.NewAuthHandler(services.Auth, cfg.IsDevelopment())
	chatHandler := handlers.NewChatHandler(services.Chat, cfg.IsDevelopment())
	healthHandler := handlers.NewHealthHandler(store)
	wsHandler := handlers.NewWebSocketHandler(services.Auth, services.Chat, sessions, cfg.AllowedOrigin, cfg.IsDevelopment())

	r.Route("/api", func(r chi.Router) {
		// Health is exempt from rate limiting: monitoring checks run
		// on fixed intervals and must not consume user quota.
		r.Get("/health", healthHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter))

			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Post("/chat", chatHandler.Chat)
			})

			r.Get("/chat/ws", wsHandler.Handle)
		})
	})

	return r
}
