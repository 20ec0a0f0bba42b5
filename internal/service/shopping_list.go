package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/pkg/logger"
	"go.uber.org/zap"
)

// ShoppingListFilename is the attachment name of the downloaded list.
const ShoppingListFilename = "shopping_list.txt"

type ShoppingListService struct {
	recipeRepo *repository.RecipeRepository
}

func NewShoppingListService(recipeRepo *repository.RecipeRepository) *ShoppingListService {
	return &ShoppingListService{recipeRepo: recipeRepo}
}

// Items aggregates the user's cart into one line per (name, unit).
func (s *ShoppingListService) Items(ctx context.Context, userID uint) ([]models.ShoppingListItem, error) {
	items, err := s.recipeRepo.ShoppingList(ctx, userID)
	if err != nil {
		logger.Log.Error("Failed to aggregate shopping list",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	return items, nil
}

// Render returns the plain text document for the user's cart.
func (s *ShoppingListService) Render(ctx context.Context, userID uint) (string, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return "", err
	}

	logger.Log.Debug("Shopping list rendered",
		zap.Uint("user_id", userID),
		zap.Int("lines", len(items)),
	)
	return RenderShoppingList(items), nil
}

// RenderShoppingList formats each item as "name-amount(unit)", one per line.
func RenderShoppingList(items []models.ShoppingListItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s-%d(%s)", item.Name, item.TotalAmount, item.MeasurementUnit))
	}
	return strings.Join(lines, "\n")
}
