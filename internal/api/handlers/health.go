package handlers

import (
	"net/http"
	"time"

	"github.com/dom/chatrelay/internal/repository"
)

type HealthHandler struct {
	store repository.Pinger
}

func NewHealthHandler(store repository.Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// Health reports storage connectivity with no side effects.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	database := "Connected"
	if err := h.store.Ping(r.Context()); err != nil {
		database = "Disconnected"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Database:  database,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
