package postgres

import (
	"context"

	"github.com/dom/chatrelay/internal/domain"
	"github.com/dom/chatrelay/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Surfaces unique-constraint violations as gorm.ErrDuplicatedKey so
		// the user repository can translate them.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User: NewUserRepository(db),
	}
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type healthChecker struct {
	db *gorm.DB
}

// NewHealthChecker adapts the connection pool to repository.Pinger.
func NewHealthChecker(db *gorm.DB) *healthChecker {
	return &healthChecker{db: db}
}

// Ping checks storage connectivity without side effects.
func (h *healthChecker) Ping(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
