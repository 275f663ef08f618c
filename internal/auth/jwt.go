package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrMissingSecret = errors.New("jwt secret is empty")

type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &TokenManager{secret: []byte(secret)}, nil
}

func (m *TokenManager) GenerateJWT(userID, username, role string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) ValidateJWT(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Identity converts validated claims into the request identity.
func (c *Claims) Identity() (Identity, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid user id in token: %w", err)
	}
	var expires time.Time
	if c.ExpiresAt != nil {
		expires = c.ExpiresAt.Time
	}
	return Identity{
		UserID:    id,
		Username:  c.Username,
		Role:      c.Role,
		TokenID:   c.ID,
		ExpiresAt: expires,
	}, nil
}
