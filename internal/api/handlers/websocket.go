package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/dom/chatrelay/internal/service"
	"github.com/dom/chatrelay/internal/websocket"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	authService *service.AuthService
	chatService *service.ChatService
	registry    *websocket.Registry
	development bool
	upgrader    ws.Upgrader
}

func NewWebSocketHandler(authService *service.AuthService, chatService *service.ChatService, registry *websocket.Registry, allowedOrigin string, development bool) *WebSocketHandler {
	return &WebSocketHandler{
		authService: authService,
		chatService: chatService,
		registry:    registry,
		development: development,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Handle authenticates via the token query parameter, upgrades the
// connection and hands it to a chat session.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		writeError(w, http.StatusUnauthorized, "Token required")
		return
	}

	claims, err := h.authService.ValidateToken(tokenString)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token claims")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR [handlers.WebSocket] upgrade: %v", err)
		return
	}

	// The request context dies when this handler returns on a hijacked
	// connection, so the session runs on its own context.
	session := websocket.NewSession(conn, h.chatService, userID, h.development)
	if !h.registry.Register(session) {
		// Server is shutting down.
		conn.Close()
		return
	}
	go func() {
		session.Run(context.Background())
		h.registry.Unregister(session)
	}()
}
