package handler

import (
	"net/http"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/dto"
	"github.com/Baaaki/foodgram/internal/policy"
	"github.com/Baaaki/foodgram/internal/service"
	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login issues a token for email and password.
// POST /api/auth/token/login/
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest

	// 1. Parse JSON request
	if !bindJSON(c, &req) {
		logger.Log.Warn("Login request parsing failed",
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	logger.Log.Info("User login attempt",
		zap.String("email", req.Email),
		zap.String("ip", c.ClientIP()),
	)

	// 2. Call service
	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	// 3. Token goes in the body; clients send it back as "Token <jwt>"
	c.JSON(http.StatusOK, dto.TokenResponse{AuthToken: token})
}

// Logout revokes the token used for this request.
// POST /api/auth/token/logout/
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), policy.ClaimsFrom(c)); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
