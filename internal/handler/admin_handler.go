package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/service"
	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultAuditLimit = 100

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// ModerationRequest is the optional body of block, unblock and delete.
type ModerationRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type AdminSetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,max=150"`
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, req)
}

// StaffUsers returns all admin accounts
// GET /api/admin/users/
func (h *AdminHandler) StaffUsers(c *gin.Context) {
	logger.Log.Info("Admin fetching staff users",
		zap.Uint("admin_id", viewerID(c)),
	)

	users, err := h.adminService.StaffUsers(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// BlockUser deactivates an account; its tokens stop working at once.
// POST /api/users/:id/block/
func (h *AdminHandler) BlockUser(c *gin.Context) {
	h.moderate(c, "block", h.adminService.BlockUser)
}

// POST /api/users/:id/unblock/
func (h *AdminHandler) UnblockUser(c *gin.Context) {
	h.moderate(c, "unblock", h.adminService.UnblockUser)
}

// DeleteUser removes the account with its recipes and relations.
// DELETE /api/users/:id/ and DELETE /api/users/:id/delete-user/
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ModerationRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	adminID := viewerID(c)
	logger.Log.Info("Admin deleting user",
		zap.Uint("admin_id", adminID),
		zap.Uint("target_user_id", id),
	)

	if err := h.adminService.DeleteUser(c.Request.Context(), adminID, id, req.Reason); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) moderate(c *gin.Context, verb string, apply func(ctx context.Context, adminID, userID uint, reason string) error) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ModerationRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	adminID := viewerID(c)
	logger.Log.Info("Admin moderating user",
		zap.String("action", verb),
		zap.Uint("admin_id", adminID),
		zap.Uint("target_user_id", id),
		zap.String("reason", req.Reason),
	)

	if err := apply(c.Request.Context(), adminID, id, req.Reason); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPassword resets a user's password without the current one.
// POST /api/users/:id/set_password/
func (h *AdminHandler) SetPassword(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AdminSetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.adminService.SetPassword(c.Request.Context(), viewerID(c), id, req.NewPassword); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AuditLog returns the newest moderation entries first.
// GET /api/admin/audit/?limit=
func (h *AdminHandler) AuditLog(c *gin.Context) {
	limit := defaultAuditLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	entries, err := h.adminService.AuditLog(limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
