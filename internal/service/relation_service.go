package service

import (
	"context"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/dto"
	"github.com/Baaaki/foodgram/internal/media"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/pkg/logger"
	"go.uber.org/zap"
)

// RelationService manages favorites and the shopping cart, which share
// identical add/remove rules.
type RelationService struct {
	relationRepo *repository.RelationRepository
	recipeRepo   *repository.RecipeRepository
	present      presenter
}

func NewRelationService(relationRepo *repository.RelationRepository, recipeRepo *repository.RecipeRepository, uploader *media.Uploader) *RelationService {
	return &RelationService{
		relationRepo: relationRepo,
		recipeRepo:   recipeRepo,
		present:      presenter{uploader: uploader},
	}
}

func alreadyMember(kind repository.Relation) *apperrors.AppError {
	if kind == repository.CartRelation {
		return apperrors.ErrAlreadyInCart
	}
	return apperrors.ErrAlreadyFavorited
}

func notMember(kind repository.Relation) *apperrors.AppError {
	if kind == repository.CartRelation {
		return apperrors.ErrNotInCart
	}
	return apperrors.ErrNotFavorited
}

// Add puts the recipe into the user's set and returns its summary.
func (s *RelationService) Add(ctx context.Context, kind repository.Relation, userID, recipeID uint) (*dto.RecipeShort, error) {
	recipe, err := s.recipeRepo.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, apperrors.ErrRecipeNotFound
	}

	exists, err := s.relationRepo.Exists(ctx, kind, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, alreadyMember(kind)
	}

	if err := s.relationRepo.Add(ctx, kind, userID, recipeID); err != nil {
		return nil, duplicateAs(err, alreadyMember(kind))
	}

	logger.Log.Info("Recipe added to set",
		zap.String("set", kind.String()),
		zap.Uint("user_id", userID),
		zap.Uint("recipe_id", recipeID),
	)

	out := s.present.recipeShort(recipe)
	return &out, nil
}

// Remove takes the recipe out of the user's set. A missing membership is
// reported as not found.
func (s *RelationService) Remove(ctx context.Context, kind repository.Relation, userID, recipeID uint) error {
	recipe, err := s.recipeRepo.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return err
	}
	if recipe == nil {
		return apperrors.ErrRecipeNotFound
	}

	removed, err := s.relationRepo.Remove(ctx, kind, userID, recipeID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return notMember(kind)
	}

	logger.Log.Info("Recipe removed from set",
		zap.String("set", kind.String()),
		zap.Uint("user_id", userID),
		zap.Uint("recipe_id", recipeID),
	)
	return nil
}
