package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Baaaki/foodgram/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IngredientRepository struct {
	db *gorm.DB
}

func NewIngredientRepository(db *gorm.DB) *IngredientRepository {
	return &IngredientRepository{db: db}
}

// Search does a case-insensitive prefix match on name. An empty prefix
// returns the whole catalog.
func (r *IngredientRepository) Search(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient

	db := r.db.WithContext(ctx).Order("name").Order("id")
	if prefix != "" {
		db = db.Where("LOWER(name) LIKE ?", strings.ToLower(prefix)+"%")
	}

	err := db.Find(&ingredients).Error
	return ingredients, err
}

func (r *IngredientRepository) GetByID(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	err := r.db.WithContext(ctx).First(&ingredient, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ingredient, nil
}

// GetByIDs returns the ingredients that exist among ids, in no particular order.
func (r *IngredientRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	if len(ids) == 0 {
		return ingredients, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error
	return ingredients, err
}

func (r *IngredientRepository) Create(ctx context.Context, ingredient *models.Ingredient) error {
	return r.db.WithContext(ctx).Create(ingredient).Error
}

func (r *IngredientRepository) Update(ctx context.Context, ingredient *models.Ingredient) error {
	return r.db.WithContext(ctx).Save(ingredient).Error
}

func (r *IngredientRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Ingredient{}, id)
	return res.RowsAffected, res.Error
}

// BulkInsertIgnoreDuplicates inserts the batch and silently skips
// (name, measurement_unit) pairs that already exist.
func (r *IngredientRepository) BulkInsertIgnoreDuplicates(ctx context.Context, ingredients []models.Ingredient) (int64, error) {
	if len(ingredients) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(ingredients, 500)
	return res.RowsAffected, res.Error
}

// ListByRecipe returns a recipe's ingredient rows with their catalog entries.
func (r *IngredientRepository) ListByRecipe(ctx context.Context, recipeID uint) ([]models.RecipeIngredient, error) {
	var rows []models.RecipeIngredient
	err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("recipe_ingredients.recipe_id = ?", recipeID).
		Order("ingredients.name").
		Find(&rows).Error
	return rows, err
}
