// Package token issues and verifies signed, time-limited bearer tokens.
// Tokens are stateless: there is no server-side session table and no
// revocation before expiry.
package token

import (
	"errors"
	"time"

	"github.com/dom/chatrelay/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret   []byte
	lifetime time.Duration
}

func NewManager(secret string, lifetime time.Duration) *Manager {
	return &Manager{secret: []byte(secret), lifetime: lifetime}
}

// Issue mints an HS256 token carrying the user ID and email, valid for the
// configured lifetime.
func (m *Manager) Issue(userID, email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.lifetime)

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token. Expiry is reported as
// domain.ErrExpiredToken; any signature or structural failure as
// domain.ErrInvalidToken.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
