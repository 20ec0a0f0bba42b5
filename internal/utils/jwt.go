package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/Baaaki/foodgram/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer is the iss claim of every auth token.
const TokenIssuer = "foodgram"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

var tokenParser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithIssuer(TokenIssuer),
	jwt.WithExpirationRequired(),
)

// Claims identify the caller. The jti (RegisteredClaims.ID) is what logout
// revokes, so every token gets a fresh one.
type Claims struct {
	UserID   uint        `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// RemainingTTL is how long the token stays valid from now.
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return time.Until(c.ExpiresAt.Time)
}

func newClaims(user *models.User, ttl time.Duration) *Claims {
	issuedAt := time.Now()
	return &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    TokenIssuer,
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
}

// GenerateToken signs an HS256 token for user valid for ttl.
func GenerateToken(user *models.User, secretKey string, ttl time.Duration) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, newClaims(user, ttl)).SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken returns ErrExpiredToken for expired tokens and wraps
// ErrInvalidToken for everything else.
func ValidateToken(tokenString, secretKey string) (*Claims, error) {
	claims := &Claims{}
	_, err := tokenParser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case claims.ID == "" || claims.UserID == 0:
		return nil, ErrInvalidToken
	}
	return claims, nil
}
