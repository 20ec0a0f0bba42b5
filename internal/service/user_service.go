package service

import (
	"context"
	"strings"
	"time"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/dto"
	"github.com/Baaaki/foodgram/internal/media"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/pagination"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/internal/utils"
	"github.com/Baaaki/foodgram/pkg/logger"
	"go.uber.org/zap"
)

// ReservedUsername collides with the /users/me/ route.
const ReservedUsername = "me"

type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// ProfileInput carries a partial profile update; nil fields stay unchanged.
type ProfileInput struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
}

type UserService struct {
	userRepo   *repository.UserRepository
	subRepo    *repository.SubscriptionRepository
	recipeRepo *repository.RecipeRepository
	uploader   *media.Uploader
	present    presenter
}

func NewUserService(
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	recipeRepo *repository.RecipeRepository,
	uploader *media.Uploader,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		subRepo:    subRepo,
		recipeRepo: recipeRepo,
		uploader:   uploader,
		present:    presenter{uploader: uploader},
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*dto.UserCreated, error) {
	start := time.Now()

	logger.Log.Debug("Processing user registration",
		zap.String("username", in.Username),
		zap.String("email", in.Email),
	)

	// 1. Reserved and taken usernames
	if strings.EqualFold(in.Username, ReservedUsername) {
		return nil, apperrors.BadRequest("username is not allowed").
			WithDetails(map[string]string{"username": "this username is reserved"})
	}
	if err := s.ensureUnique(ctx, 0, &in.Username, &in.Email); err != nil {
		return nil, err
	}

	// 2. Similar emails
	emails, err := s.userRepo.GetAllEmails(ctx)
	if err != nil {
		return nil, err
	}
	if match, found := utils.MostSimilarEmail(in.Email, emails); found {
		logger.Log.Warn("Registration rejected: email too similar",
			zap.String("email", in.Email),
			zap.String("existing", match),
		)
		return nil, apperrors.ErrEmailTooSimilar.WithDetails(map[string]string{"email": apperrors.ErrEmailTooSimilar.Message})
	}

	// 3. Hash password (Argon2)
	hashStart := time.Now()
	hashedPassword, err := utils.HashPassword(in.Password)
	if err != nil {
		logger.Log.Error("Failed to hash password", zap.Error(err))
		return nil, err
	}
	hashDuration := time.Since(hashStart)

	// 4. Create user
	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
		IsActive:     true,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		logger.Log.Error("Failed to create user in database",
			zap.String("username", in.Username),
			zap.Error(err),
		)
		return nil, duplicateAs(err, apperrors.ErrUsernameTaken)
	}

	logger.Log.Info("User registered successfully",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username),
		zap.Duration("hash_duration", hashDuration),
		zap.Duration("total_duration", time.Since(start)),
	)

	return &dto.UserCreated{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// ensureUnique rejects a username or email already used by someone other than selfID.
func (s *UserService) ensureUnique(ctx context.Context, selfID uint, username, email *string) error {
	if username != nil {
		existing, err := s.userRepo.GetUserByUsername(ctx, *username)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			return apperrors.ErrUsernameTaken.WithDetails(map[string]string{"username": apperrors.ErrUsernameTaken.Message})
		}
	}
	if email != nil {
		existing, err := s.userRepo.GetUserByEmail(ctx, *email)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			return apperrors.ErrEmailTaken.WithDetails(map[string]string{"email": apperrors.ErrEmailTaken.Message})
		}
	}
	return nil
}

// List pages through users by username. viewerID is 0 for anonymous callers.
func (s *UserService) List(ctx context.Context, viewerID uint, p pagination.Params) ([]dto.User, int64, error) {
	users, count, err := s.userRepo.ListUsers(ctx, p.Offset(), p.Limit)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	followed, err := s.subRepo.FollowedAmong(ctx, viewerID, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]dto.User, 0, len(users))
	for i := range users {
		out = append(out, s.present.user(&users[i], followed[users[i].ID]))
	}
	return out, count, nil
}

func (s *UserService) Get(ctx context.Context, viewerID, id uint) (*dto.User, error) {
	user, err := s.mustGetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	subscribed, err := s.isSubscribed(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}

	out := s.present.user(user, subscribed)
	return &out, nil
}

// Profile returns the user with their newest recipes; recipesLimit < 0 means all.
func (s *UserService) Profile(ctx context.Context, viewerID, id uint, recipesLimit int) (*dto.UserWithRecipes, error) {
	user, err := s.mustGetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	subscribed, err := s.isSubscribed(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}

	return authorWithRecipes(ctx, s.recipeRepo, s.present, user, subscribed, recipesLimit)
}

// UpdateProfile lets a user edit their own profile only.
func (s *UserService) UpdateProfile(ctx context.Context, actor *utils.Claims, id uint, in ProfileInput) (*dto.User, error) {
	if actor == nil || actor.UserID != id {
		return nil, apperrors.ErrPermissionDenied
	}

	user, err := s.mustGetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != nil && strings.EqualFold(*in.Username, ReservedUsername) {
		return nil, apperrors.BadRequest("username is not allowed").
			WithDetails(map[string]string{"username": "this username is reserved"})
	}
	if err := s.ensureUnique(ctx, id, in.Username, in.Email); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.Username != nil {
		fields["username"] = *in.Username
		user.Username = *in.Username
	}
	if in.Email != nil {
		fields["email"] = *in.Email
		user.Email = *in.Email
	}
	if in.FirstName != nil {
		fields["first_name"] = *in.FirstName
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		fields["last_name"] = *in.LastName
		user.LastName = *in.LastName
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, id, fields); err != nil {
			return nil, duplicateAs(err, apperrors.ErrUsernameTaken)
		}
		logger.Log.Info("Profile updated",
			zap.Uint("user_id", id),
			zap.Int("fields", len(fields)),
		)
	}

	out := s.present.user(user, false)
	return &out, nil
}

// SetAvatar replaces the caller's avatar and returns its URL.
func (s *UserService) SetAvatar(ctx context.Context, actor *utils.Claims, id uint, upload *media.Upload) (*dto.Avatar, error) {
	if actor == nil || actor.UserID != id {
		return nil, apperrors.ErrPermissionDenied
	}
	user, err := s.mustGetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.uploader.Save(ctx, media.UserAvatars, upload)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateFields(ctx, id, map[string]interface{}{"avatar": key}); err != nil {
		s.uploader.Remove(ctx, key)
		return nil, err
	}
	s.uploader.Remove(ctx, user.Avatar)

	logger.Log.Info("Avatar updated", zap.Uint("user_id", id))
	return &dto.Avatar{Avatar: s.uploader.URL(key)}, nil
}

func (s *UserService) DeleteAvatar(ctx context.Context, actor *utils.Claims, id uint) error {
	if actor == nil || actor.UserID != id {
		return apperrors.ErrPermissionDenied
	}
	user, err := s.mustGetUser(ctx, id)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateFields(ctx, id, map[string]interface{}{"avatar": ""}); err != nil {
		return err
	}
	s.uploader.Remove(ctx, user.Avatar)

	logger.Log.Info("Avatar removed", zap.Uint("user_id", id))
	return nil
}

// SetPassword changes the caller's password after checking the current one.
func (s *UserService) SetPassword(ctx context.Context, userID uint, current, newPassword string) error {
	user, err := s.mustGetUser(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := utils.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrWrongPassword.WithDetails(map[string]string{"current_password": apperrors.ErrWrongPassword.Message})
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"password_hash": hash}); err != nil {
		return err
	}

	logger.Log.Info("Password changed", zap.Uint("user_id", userID))
	return nil
}

func (s *UserService) mustGetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) isSubscribed(ctx context.Context, viewerID, authorID uint) (bool, error) {
	if viewerID == 0 {
		return false, nil
	}
	return s.subRepo.Exists(ctx, authorID, viewerID)
}

// authorWithRecipes assembles a profile with the author's recipes and total.
func authorWithRecipes(ctx context.Context, recipeRepo *repository.RecipeRepository, p presenter, author *models.User, subscribed bool, recipesLimit int) (*dto.UserWithRecipes, error) {
	recipes, err := recipeRepo.ListByAuthor(ctx, author.ID, recipesLimit)
	if err != nil {
		return nil, err
	}
	count, err := recipeRepo.CountByAuthor(ctx, author.ID)
	if err != nil {
		return nil, err
	}

	return &dto.UserWithRecipes{
		User:         p.user(author, subscribed),
		Recipes:      p.recipeShorts(recipes),
		RecipesCount: count,
	}, nil
}
