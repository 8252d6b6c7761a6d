package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dom/chatrelay/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("ERROR [handlers.writeJSON] encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps a domain error onto the wire contract. Unclassified
// failures collapse to a 500 with detail redacted unless running in
// development mode.
func writeServiceError(w http.ResponseWriter, err error, development bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrPasswordsDiffer),
		errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrBadCredentials),
		errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrExpiredToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		var upstreamErr *domain.UpstreamError
		if errors.As(err, &upstreamErr) {
			writeUpstreamError(w, upstreamErr)
			return
		}
		log.Printf("ERROR [handlers] internal error: %v", err)
		if development {
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Internal server error",
				Details: err.Error(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeUpstreamError mirrors the provider's status and body. The body is
// re-emitted as-is when it is valid JSON, or as a string otherwise.
func writeUpstreamError(w http.ResponseWriter, upstreamErr *domain.UpstreamError) {
	var details any
	if json.Valid(upstreamErr.Body) {
		details = json.RawMessage(upstreamErr.Body)
	} else {
		details = string(upstreamErr.Body)
	}
	writeJSON(w, upstreamErr.StatusCode, errorResponse{
		Error:   "Upstream API error",
		Details: details,
	})
}
