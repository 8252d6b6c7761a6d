package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/chatrelay/internal/domain"
	"github.com/dom/chatrelay/internal/repository/postgres"
	"github.com/dom/chatrelay/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(email string) *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "$2a$10$fakehashfakehashfakehashfakehash",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user := newUser("alice@example.com")
	require.NoError(t, repo.Create(ctx, user))

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
}

func TestUserRepository_DuplicateEmailTranslated(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("dup@example.com")))

	err := repo.Create(ctx, newUser("dup@example.com"))
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestUserRepository_NotFound(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
