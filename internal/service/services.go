package service

import (
	"github.com/dom/chatrelay/internal/config"
	"github.com/dom/chatrelay/internal/repository"
	"github.com/dom/chatrelay/internal/token"
	"github.com/dom/chatrelay/internal/upstream"
)

type Services struct {
	Auth *AuthService
	Chat *ChatService
}

func NewServices(repos *repository.Repositories, cfg *config.Config) *Services {
	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenLifetime)
	gemini := upstream.NewGeminiClient(cfg.GeminiEndpoint, cfg.GeminiAPIKey, cfg.UpstreamTimeout)

	return &Services{
		Auth: NewAuthService(repos.User, tokens),
		Chat: NewChatService(gemini),
	}
}
