package service

import (
	"context"
	"errors"
	"time"

	"github.com/dom/chatrelay/internal/domain"
	"github.com/dom/chatrelay/internal/repository"
	"github.com/dom/chatrelay/internal/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash keeps the bcrypt comparison on the login path even when no user
// matches, so a miss is not distinguishable from a wrong password by timing.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("chatrelay-timing-pad"), bcrypt.DefaultCost)

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *token.Manager
}

func NewAuthService(userRepo repository.UserRepository, tokens *token.Manager) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Email == "" || input.Password == "" || input.ConfirmPassword == "" {
		return nil, domain.ErrInvalidInput
	}
	if input.Password != input.ConfirmPassword {
		return nil, domain.ErrPasswordsDiffer
	}
	if len(input.Password) < 8 {
		return nil, domain.ErrWeakPassword
	}

	email := domain.NormalizeEmail(input.Email)
	if !domain.ValidEmail(email) {
		return nil, domain.ErrInvalidEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	// No existence pre-check: the unique index on users.email is the only
	// arbiter, which closes the race between check and insert.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	user, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(input.Password))
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrBadCredentials
	}

	signed, expiresAt, err := s.tokens.Issue(user.ID.String(), user.Email)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:      user,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken verifies a bearer token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*token.Claims, error) {
	return s.tokens.Verify(tokenString)
}
