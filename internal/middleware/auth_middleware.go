package middleware

import (
	"context"
	"strings"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/utils"
	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserLookup loads the account behind a token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// RevocationChecker reports logged-out token IDs.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthMiddleware identifies the caller when an Authorization header is
// present and lets anonymous requests through; policy.Require decides what
// anonymous callers may do. A header that is present but bad is always 401.
func AuthMiddleware(jwtSecret string, users UserLookup, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		// 2. Extract token from "Token <jwt>" or "Bearer <jwt>"
		tokenString, ok := extractToken(authHeader)
		if !ok {
			apperrors.Respond(c, apperrors.ErrInvalidToken)
			return
		}

		// 3. Validate token
		claims, err := utils.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			apperrors.Respond(c, apperrors.ErrInvalidToken)
			return
		}

		ctx := c.Request.Context()

		// 4. Reject logged-out tokens
		revoked, err := revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			logger.Log.Error("Failed to check token revocation",
				zap.Uint("user_id", claims.UserID),
				zap.Error(err),
			)
			apperrors.Respond(c, err)
			return
		}
		if revoked {
			apperrors.Respond(c, apperrors.ErrInvalidToken)
			return
		}

		// 5. The account must still exist and be active
		user, err := users.GetUserByID(ctx, claims.UserID)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		if user == nil || !user.IsActive {
			logger.Log.Warn("Token presented for missing or blocked user",
				zap.Uint("user_id", claims.UserID),
			)
			apperrors.Respond(c, apperrors.ErrInvalidToken)
			return
		}
		// role changes apply immediately, not at next login
		claims.Role = user.Role

		// 6. Add claims to context (handlers can access)
		c.Set("user_id", claims.UserID)
		c.Set("user_role", claims.Role)
		c.Set("claims", claims)
		c.Set("user", user)

		c.Next()
	}
}

func extractToken(header string) (string, bool) {
	for _, prefix := range []string{"Token ", "Bearer "} {
		if strings.HasPrefix(header, prefix) {
			token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
			return token, token != ""
		}
	}
	return "", false
}
