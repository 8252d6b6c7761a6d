package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
)

// Recoverer converts panics into a single well-formed JSON 500 instead of a
// dropped connection. It is the outermost error boundary; nothing past it
// may write a second response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Printf("ERROR [middleware.Recoverer] panic: %v\n%s", rec, debug.Stack())
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"Internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
