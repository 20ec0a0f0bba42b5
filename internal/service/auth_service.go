package service

import (
	"context"
	"time"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/internal/tokens"
	"github.com/Baaaki/foodgram/internal/utils"
	"github.com/Baaaki/foodgram/pkg/logger"
	"go.uber.org/zap"
)

type AuthService struct {
	userRepo      *repository.UserRepository
	revocations   *tokens.RevocationStore
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAuthService(userRepo *repository.UserRepository, revocations *tokens.RevocationStore, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		revocations:   revocations,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Login exchanges credentials for a token. Unknown email, wrong password and
// blocked accounts all fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	start := time.Now()

	// 1. Get user by email
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Error("Failed to get user by email",
			zap.String("email", email),
			zap.Error(err),
		)
		return "", err
	}
	if user == nil {
		logger.Log.Warn("Login failed: user not found",
			zap.String("email", email),
		)
		return "", apperrors.ErrInvalidCredentials
	}

	// 2. Verify password
	verifyStart := time.Now()
	valid, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		logger.Log.Error("Failed to verify password",
			zap.Uint("user_id", user.ID),
			zap.Error(err),
		)
		return "", err
	}
	verifyDuration := time.Since(verifyStart)

	if !valid {
		logger.Log.Warn("Login failed: invalid password",
			zap.Uint("user_id", user.ID),
		)
		return "", apperrors.ErrInvalidCredentials
	}

	// 3. Blocked accounts cannot log in
	if !user.IsActive {
		logger.Log.Warn("Login failed: user is blocked",
			zap.Uint("user_id", user.ID),
		)
		return "", apperrors.ErrInvalidCredentials
	}

	// 4. Generate JWT token
	token, err := utils.GenerateToken(user, s.jwtSecret, s.jwtExpiration)
	if err != nil {
		logger.Log.Error("Failed to generate JWT token",
			zap.Uint("user_id", user.ID),
			zap.Error(err),
		)
		return "", err
	}

	logger.Log.Info("User logged in successfully",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username),
		zap.Duration("password_verify_duration", verifyDuration),
		zap.Duration("total_duration", time.Since(start)),
	)

	return token, nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *utils.Claims) error {
	if claims == nil || claims.ID == "" {
		return apperrors.ErrTokenNotFound
	}

	if err := s.revocations.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		logger.Log.Error("Failed to revoke token",
			zap.Uint("user_id", claims.UserID),
			zap.Error(err),
		)
		return err
	}

	logger.Log.Info("User logged out",
		zap.Uint("user_id", claims.UserID),
	)
	return nil
}

// IsRevoked reports whether jti was logged out.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revocations.IsRevoked(ctx, jti)
}
