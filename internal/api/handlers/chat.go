package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/chatrelay/internal/domain"
	"github.com/dom/chatrelay/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
	development bool
}

func NewChatHandler(chatService *service.ChatService, development bool) *ChatHandler {
	return &ChatHandler{chatService: chatService, development: development}
}

// chatRequest keeps query untyped so non-string payloads ({"query": 42},
// {"query": null}) are rejected as invalid rather than coerced.
type chatRequest struct {
	Query any `json:"query"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	query, ok := req.Query.(string)
	if !ok {
		writeError(w, http.StatusBadRequest, "Query must be a string")
		return
	}

	text, err := h.chatService.Ask(r.Context(), query)
	if err != nil {
		writeServiceError(w, err, h.development)
		return
	}

	writeJSON(w, http.StatusOK, domain.ChatResult{Response: text})
}
