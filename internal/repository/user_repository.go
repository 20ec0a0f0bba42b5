package repository

import (
	"context"
	"errors"

	"github.com/Baaaki/foodgram/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

// first returns (nil, nil) when nothing matches.
func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// ListUsers returns one page of users ordered by username plus the total count.
func (r *UserRepository) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	var (
		users []models.User
		count int64
	)

	db := r.db.WithContext(ctx).Model(&models.User{}).Session(&gorm.Session{})
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("username").Offset(offset).Limit(limit).Find(&users).Error
	return users, count, err
}

// GetStaffUsers lists every admin account.
func (r *UserRepository) GetStaffUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("role = ?", models.RoleAdmin).
		Order("username").
		Find(&users).Error
	return users, err
}

// GetAllEmails feeds the registration similarity check.
func (r *UserRepository) GetAllEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).Model(&models.User{}).Pluck("email", &emails).Error
	return emails, err
}

// UpdateFields writes only the given columns.
func (r *UserRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.User{ID: id}).
		Omit(clause.Associations).
		Updates(fields).Error
}

// DeleteUser removes the user and everything hanging off it in one
// transaction. It returns the image keys of the deleted recipes so the caller
// can drop the stored files.
func (r *UserRepository) DeleteUser(ctx context.Context, id uint) ([]string, error) {
	var images []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{}).Where("author_id = ? AND image <> ''", id).Pluck("image", &images).Error; err != nil {
			return err
		}

		recipeIDs := tx.Model(&models.Recipe{}).Select("id").Where("author_id = ?", id)

		if err := tx.Where("user_id = ? OR recipe_id IN (?)", id, recipeIDs).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR recipe_id IN (?)", id, recipeIDs).Delete(&models.ShoppingCart{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id IN (?)", recipeIDs).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Recipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ? OR subscriber_id = ?", id, id).Delete(&models.Subscription{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}
