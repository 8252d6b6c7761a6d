package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/chatrelay/internal/api"
	"github.com/dom/chatrelay/internal/config"
	"github.com/dom/chatrelay/internal/ratelimit"
	"github.com/dom/chatrelay/internal/repository/postgres"
	"github.com/dom/chatrelay/internal/service"
	"github.com/dom/chatrelay/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	repos := postgres.NewRepositories(db)
	services := service.NewServices(repos, cfg)
	limiter := ratelimit.NewLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	sessions := websocket.NewRegistry()

	router := api.NewRouter(services, postgres.NewHealthChecker(db), limiter, sessions, cfg)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop accepting connections and drain in-flight requests.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	// Hijacked websocket connections are not drained by srv.Shutdown;
	// close them explicitly so clients get a going-away frame.
	sessions.Shutdown()

	if err := postgres.Close(db); err != nil {
		log.Printf("ERROR [main] closing database: %v", err)
	}

	log.Println("Server stopped")
}
