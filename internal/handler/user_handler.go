package handler

import (
	"net/http"
	"strings"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/media"
	"github.com/Baaaki/foodgram/internal/pagination"
	"github.com/Baaaki/foodgram/internal/policy"
	"github.com/Baaaki/foodgram/internal/service"
	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService         *service.UserService
	subscriptionService *service.SubscriptionService
}

func NewUserHandler(userService *service.UserService, subscriptionService *service.SubscriptionService) *UserHandler {
	return &UserHandler{
		userService:         userService,
		subscriptionService: subscriptionService,
	}
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,max=150"`
}

type UpdateProfileRequest struct {
	Email     *string `json:"email" binding:"omitempty,email,max=254"`
	Username  *string `json:"username" binding:"omitempty,max=150,username"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
}

type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,max=150"`
}

type AvatarRequest struct {
	Avatar string `json:"avatar"`
}

// Register creates an account.
// POST /api/users/
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	logger.Log.Info("User registration attempt",
		zap.String("username", req.Username),
		zap.String("email", req.Email),
		zap.String("ip", c.ClientIP()),
	)

	user, err := h.userService.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// List returns every user, paginated.
// GET /api/users/
func (h *UserHandler) List(c *gin.Context) {
	p := pagination.FromRequest(c)

	users, count, err := h.userService.List(c.Request.Context(), viewerID(c), p)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	respondPage(c, p, count, users)
}

// GET /api/users/:id/
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), viewerID(c), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GET /api/users/me/
func (h *UserHandler) Me(c *gin.Context) {
	uid := viewerID(c)

	user, err := h.userService.Get(c.Request.Context(), uid, uid)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Profile returns a user with their recipes.
// GET /api/users/:id/profile/?recipes_limit=
func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	profile, err := h.userService.Profile(c.Request.Context(), viewerID(c), id, recipesLimit(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile serves PUT and PATCH; omitted fields are left alone.
// PUT|PATCH /api/users/:id/update_profile/
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), policy.ClaimsFrom(c), id, service.ProfileInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetAvatar accepts a data URI in JSON or a multipart "avatar" file.
// POST|PUT /api/users/:id/avatar/
func (h *UserHandler) SetAvatar(c *gin.Context) {
	id, ok := userPathID(c)
	if !ok {
		return
	}

	upload, err := avatarUpload(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	avatar, err := h.userService.SetAvatar(c.Request.Context(), policy.ClaimsFrom(c), id, upload)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, avatar)
}

func avatarUpload(c *gin.Context) (*media.Upload, error) {
	required := apperrors.BadRequest("avatar is required").
		WithDetails(map[string]string{"avatar": "this field is required"})

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("avatar")
		if err != nil {
			return nil, required
		}
		return media.FromMultipart(fh)
	}

	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, bindingError(err)
	}
	if req.Avatar == "" {
		return nil, required
	}
	return media.FromDataURI(req.Avatar)
}

// DELETE /api/users/:id/avatar/
func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	id, ok := userPathID(c)
	if !ok {
		return
	}

	if err := h.userService.DeleteAvatar(c.Request.Context(), policy.ClaimsFrom(c), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPassword changes the caller's own password.
// POST /api/users/set_password/
func (h *UserHandler) SetPassword(c *gin.Context) {
	var req SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.SetPassword(c.Request.Context(), viewerID(c), req.CurrentPassword, req.NewPassword); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscribe follows the author and returns their profile summary.
// POST /api/users/:id/subscribe/?recipes_limit=
func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, ok := pathID(c, "id")
	if !ok {
		return
	}

	author, err := h.subscriptionService.Subscribe(c.Request.Context(), viewerID(c), authorID, recipesLimit(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, author)
}

// DELETE /api/users/:id/subscribe/
func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.subscriptionService.Unsubscribe(c.Request.Context(), viewerID(c), authorID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscriptions lists the authors the caller follows.
// GET /api/users/subscriptions/?recipes_limit=
func (h *UserHandler) Subscriptions(c *gin.Context) {
	p := pagination.FromRequest(c)

	authors, count, err := h.subscriptionService.List(c.Request.Context(), viewerID(c), p, recipesLimit(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	respondPage(c, p, count, authors)
}
