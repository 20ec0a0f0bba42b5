package service

import (
	"context"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/audit"
	"github.com/Baaaki/foodgram/internal/media"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/internal/utils"
	"github.com/Baaaki/foodgram/pkg/logger"
	"go.uber.org/zap"
)

// AdminService holds user moderation. Every successful action is journaled.
type AdminService struct {
	userRepo *repository.UserRepository
	uploader *media.Uploader
	journal  *audit.Journal
}

func NewAdminService(userRepo *repository.UserRepository, uploader *media.Uploader, journal *audit.Journal) *AdminService {
	return &AdminService{
		userRepo: userRepo,
		uploader: uploader,
		journal:  journal,
	}
}

// StaffUsers lists admin accounts.
func (s *AdminService) StaffUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.GetStaffUsers(ctx)
	if err != nil {
		logger.Log.Error("Failed to fetch staff users", zap.Error(err))
		return nil, err
	}
	return users, nil
}

func (s *AdminService) BlockUser(ctx context.Context, adminID, userID uint, reason string) error {
	return s.setActive(ctx, adminID, userID, false, reason)
}

func (s *AdminService) UnblockUser(ctx context.Context, adminID, userID uint, reason string) error {
	return s.setActive(ctx, adminID, userID, true, reason)
}

func (s *AdminService) setActive(ctx context.Context, adminID, userID uint, active bool, reason string) error {
	if adminID == userID {
		return apperrors.BadRequest("you cannot change your own status")
	}
	if _, err := s.mustGetUser(ctx, userID); err != nil {
		return err
	}

	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"is_active": active}); err != nil {
		logger.Log.Error("Failed to update user status",
			zap.Uint("user_id", userID),
			zap.Bool("active", active),
			zap.Error(err),
		)
		return err
	}

	action := audit.ActionBlockUser
	if active {
		action = audit.ActionUnblockUser
	}
	s.record(action, adminID, userID, reason)

	logger.Log.Info("User status changed",
		zap.Uint("user_id", userID),
		zap.Uint("admin_id", adminID),
		zap.Bool("active", active),
	)
	return nil
}

// DeleteUser hard-deletes the account and everything it owns.
func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID uint, reason string) error {
	if adminID == userID {
		return apperrors.BadRequest("you cannot delete your own account")
	}
	user, err := s.mustGetUser(ctx, userID)
	if err != nil {
		return err
	}

	recipeImages, err := s.userRepo.DeleteUser(ctx, userID)
	if err != nil {
		logger.Log.Error("Failed to delete user",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return err
	}
	s.uploader.Remove(ctx, user.Avatar)
	for _, key := range recipeImages {
		s.uploader.Remove(ctx, key)
	}
	s.record(audit.ActionDeleteUser, adminID, userID, reason)

	logger.Log.Info("User deleted",
		zap.Uint("user_id", userID),
		zap.Uint("admin_id", adminID),
		zap.Int("recipe_images_removed", len(recipeImages)),
	)
	return nil
}

// SetPassword resets another user's password without the current one.
func (s *AdminService) SetPassword(ctx context.Context, adminID, userID uint, newPassword string) error {
	if _, err := s.mustGetUser(ctx, userID); err != nil {
		return err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"password_hash": hash}); err != nil {
		return err
	}

	s.record(audit.ActionSetPassword, adminID, userID, "")
	logger.Log.Info("Password reset by admin",
		zap.Uint("user_id", userID),
		zap.Uint("admin_id", adminID),
	)
	return nil
}

// AuditLog returns the newest journal entries first.
func (s *AdminService) AuditLog(limit int) ([]audit.Entry, error) {
	if s.journal == nil {
		return []audit.Entry{}, nil
	}
	return s.journal.Recent(limit)
}

// record journals an action. The action already happened, so a journal
// failure is logged rather than returned.
func (s *AdminService) record(action audit.Action, actorID, targetID uint, reason string) {
	recordAudit(s.journal, audit.Entry{
		Action:   action,
		ActorID:  actorID,
		Target:   "user",
		TargetID: targetID,
		Reason:   reason,
	})
}

func recordAudit(journal *audit.Journal, entry audit.Entry) {
	if journal == nil {
		return
	}
	if err := journal.Append(entry); err != nil {
		logger.Log.Error("Failed to write audit entry",
			zap.String("action", string(entry.Action)),
			zap.Uint("target_id", entry.TargetID),
			zap.Error(err),
		)
	}
}

func (s *AdminService) mustGetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}
