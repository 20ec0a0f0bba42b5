package repository

import (
	"context"

	"github.com/Baaaki/foodgram/internal/models"
	"gorm.io/gorm"
)

// Relation selects one of the per-user recipe membership sets.
type Relation int

const (
	FavoriteRelation Relation = iota
	CartRelation
)

func (k Relation) String() string {
	if k == CartRelation {
		return "shopping_cart"
	}
	return "favorite"
}

func (k Relation) row(userID, recipeID uint) interface{} {
	if k == CartRelation {
		return &models.ShoppingCart{UserID: userID, RecipeID: recipeID}
	}
	return &models.Favorite{UserID: userID, RecipeID: recipeID}
}

type RelationRepository struct {
	db *gorm.DB
}

func NewRelationRepository(db *gorm.DB) *RelationRepository {
	return &RelationRepository{db: db}
}

// Add inserts the pair. A concurrent duplicate surfaces as gorm.ErrDuplicatedKey.
func (r *RelationRepository) Add(ctx context.Context, kind Relation, userID, recipeID uint) error {
	return r.db.WithContext(ctx).Omit("User", "Recipe").Create(kind.row(userID, recipeID)).Error
}

// Remove returns the number of deleted rows (0 or 1).
func (r *RelationRepository) Remove(ctx context.Context, kind Relation, userID, recipeID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(kind.row(0, 0))
	return res.RowsAffected, res.Error
}

func (r *RelationRepository) Exists(ctx context.Context, kind Relation, userID, recipeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(kind.row(0, 0)).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error
	return count > 0, err
}

// MembersAmong returns which of recipeIDs are in the user's set.
func (r *RelationRepository) MembersAmong(ctx context.Context, kind Relation, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	members := make(map[uint]bool)
	if userID == 0 || len(recipeIDs) == 0 {
		return members, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(kind.row(0, 0)).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		members[id] = true
	}
	return members, nil
}
