package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/chatrelay/internal/api"
	"github.com/dom/chatrelay/internal/config"
	"github.com/dom/chatrelay/internal/domain"
	"github.com/dom/chatrelay/internal/ratelimit"
	"github.com/dom/chatrelay/internal/repository"
	repoPostgres "github.com/dom/chatrelay/internal/repository/postgres"
	"github.com/dom/chatrelay/internal/service"
	"github.com/dom/chatrelay/internal/websocket"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_chatrelay"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	if err := tdb.DB.Exec("TRUNCATE TABLE users CASCADE").Error; err != nil {
		t.Logf("warning: failed to truncate users: %v", err)
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Environment:       "test",
		JWTSecret:         "test-jwt-secret-key-for-testing-only",
		TokenLifetime:     time.Hour,
		GeminiAPIKey:      "test-api-key",
		UpstreamTimeout:   5 * time.Second,
		AllowedOrigin:     "http://localhost:3000",
		RateLimitRequests: 100,
		RateLimitWindow:   15 * time.Minute,
	}
}

// StubGemini returns an httptest server that answers generateContent calls
// with a single candidate carrying the given text.
func StubGemini(t *testing.T, text string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": text}},
				},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Limiter  *ratelimit.Limiter
	Sessions *websocket.Registry
	Config   *config.Config
}

// NewTestServer creates a complete test server backed by a containerized
// database and the given upstream stub. A nil upstream gets a default stub
// answering every query with "stub answer".
func NewTestServer(t *testing.T, upstream *httptest.Server) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	cfg := TestConfig()

	if upstream == nil {
		upstream = StubGemini(t, "stub answer")
	}
	cfg.GeminiEndpoint = upstream.URL

	repos := repoPostgres.NewRepositories(testDB.DB)
	services := service.NewServices(repos, cfg)
	limiter := ratelimit.NewLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	sessions := websocket.NewRegistry()

	router := api.NewRouter(services, repoPostgres.NewHealthChecker(testDB.DB), limiter, sessions, cfg)
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       testDB,
		Repos:    repos,
		Services: services,
		Limiter:  limiter,
		Sessions: sessions,
		Config:   cfg,
	}

	t.Cleanup(func() {
		sessions.Shutdown()
		server.Close()
	})

	return ts
}

// APIURL returns the full URL for an API path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api%s", ts.Server.URL, path)
}

// WebSocketURL returns the chat WebSocket URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:]
	return fmt.Sprintf("%s/api/chat/ws?token=%s", wsURL, token)
}
