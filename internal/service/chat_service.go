package service

import (
	"context"
	"strings"

	"github.com/dom/chatrelay/internal/domain"
)

// Generator is the upstream text provider consulted by Ask.
type Generator interface {
	Generate(ctx context.Context, query string) (string, error)
}

type ChatService struct {
	generator Generator
}

func NewChatService(generator Generator) *ChatService {
	return &ChatService{generator: generator}
}

// Ask validates the query and forwards it to the upstream provider. The
// upstream call is bounded by the client's timeout and the request context;
// cancelling ctx cancels the in-flight call.
func (s *ChatService) Ask(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", domain.ErrInvalidQuery
	}
	return s.generator.Generate(ctx, query)
}
