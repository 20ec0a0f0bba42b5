package repository

import (
	"context"

	"github.com/Baaaki/foodgram/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error
}

// Delete returns the number of removed edges (0 or 1).
func (r *SubscriptionRepository) Delete(ctx context.Context, authorID, subscriberID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("author_id = ? AND subscriber_id = ?", authorID, subscriberID).
		Delete(&models.Subscription{})
	return res.RowsAffected, res.Error
}

func (r *SubscriptionRepository) Exists(ctx context.Context, authorID, subscriberID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("author_id = ? AND subscriber_id = ?", authorID, subscriberID).
		Count(&count).Error
	return count > 0, err
}

// ListAuthors returns one page of the authors subscriberID follows, by username.
func (r *SubscriptionRepository) ListAuthors(ctx context.Context, subscriberID uint, offset, limit int) ([]models.User, int64, error) {
	var (
		authors []models.User
		count   int64
	)

	db := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.subscriber_id = ?", subscriberID).
		Session(&gorm.Session{})

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("users.username").Offset(offset).Limit(limit).Find(&authors).Error
	return authors, count, err
}

// FollowedAmong returns which of authorIDs subscriberID follows.
func (r *SubscriptionRepository) FollowedAmong(ctx context.Context, subscriberID uint, authorIDs []uint) (map[uint]bool, error) {
	followed := make(map[uint]bool)
	if subscriberID == 0 || len(authorIDs) == 0 {
		return followed, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("subscriber_id = ? AND author_id IN ?", subscriberID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		followed[id] = true
	}
	return followed, nil
}

// SubscriberIDs lists everyone following authorID.
func (r *SubscriptionRepository) SubscriberIDs(ctx context.Context, authorID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("author_id = ?", authorID).
		Pluck("subscriber_id", &ids).Error
	return ids, err
}
