package repository

import (
	"context"
	"errors"

	"github.com/Baaaki/foodgram/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeFilter narrows a recipe listing. Zero values mean "no filter".
type RecipeFilter struct {
	AuthorID    uint
	FavoritedBy uint
	InCartOf    uint
}

type RecipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// CreateRecipe inserts the recipe and its ingredient rows atomically.
func (r *RecipeRepository) CreateRecipe(ctx context.Context, recipe *models.Recipe) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return err
		}
		return insertIngredients(tx, recipe.ID, recipe.Ingredients)
	})
}

// ReplaceRecipe updates the scalar columns, then swaps the whole ingredient
// set for items. The recipe never shows a partial set to other readers.
func (r *RecipeRepository) ReplaceRecipe(ctx context.Context, id uint, fields map[string]interface{}, items []models.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{ID: id}).Omit(clause.Associations).Updates(fields).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		return insertIngredients(tx, id, items)
	})
}

func insertIngredients(tx *gorm.DB, recipeID uint, items []models.RecipeIngredient) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].RecipeID = recipeID
	}
	return tx.Omit(clause.Associations).CreateInBatches(items, 500).Error
}

// GetRecipeByID loads the bare row, without relations.
func (r *RecipeRepository) GetRecipeByID(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.WithContext(ctx).First(&recipe, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recipe, nil
}

// GetRecipeDetail loads the recipe with its author and ingredients.
func (r *RecipeRepository) GetRecipeDetail(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.withRelations(r.db.WithContext(ctx)).First(&recipe, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recipe, nil
}

// ListRecipes returns one page, newest first, plus the filtered total.
func (r *RecipeRepository) ListRecipes(ctx context.Context, filter RecipeFilter, offset, limit int) ([]models.Recipe, int64, error) {
	var (
		recipes []models.Recipe
		count   int64
	)

	db := r.db.WithContext(ctx).Model(&models.Recipe{})
	if filter.AuthorID != 0 {
		db = db.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if filter.FavoritedBy != 0 {
		db = db.Where("recipes.id IN (?)",
			r.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", filter.FavoritedBy))
	}
	if filter.InCartOf != 0 {
		db = db.Where("recipes.id IN (?)",
			r.db.Model(&models.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", filter.InCartOf))
	}
	db = db.Session(&gorm.Session{})

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	err := r.withRelations(db).
		Order("recipes.pub_date DESC").
		Order("recipes.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&recipes).Error
	return recipes, count, err
}

// ListByAuthor returns up to limit of an author's newest recipes; limit < 0 means all.
func (r *RecipeRepository) ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("pub_date DESC").
		Order("id DESC").
		Limit(limit).
		Find(&recipes).Error
	return recipes, err
}

func (r *RecipeRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Recipe{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

// DeleteRecipe removes the recipe with its ingredient rows and memberships.
func (r *RecipeRepository) DeleteRecipe(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Favorite{}, &models.ShoppingCart{}, &models.RecipeIngredient{}} {
			if err := tx.Where("recipe_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, id).Error
	})
}

// ShoppingList sums ingredient amounts over every recipe in the user's cart,
// grouped by (name, unit) and sorted the same way.
func (r *RecipeRepository) ShoppingList(ctx context.Context, userID uint) ([]models.ShoppingListItem, error) {
	var items []models.ShoppingListItem
	err := r.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error
	return items, err
}

func (r *RecipeRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("recipe_ingredients.id")
		}).
		Preload("Ingredients.Ingredient")
}
