package service

import (
	"context"
	"sort"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/audit"
	"github.com/Baaaki/foodgram/internal/dto"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/pkg/logger"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

type IngredientInput struct {
	Name            string
	MeasurementUnit string
}

// IngredientService serves the catalog. Lookups by id go through an LRU
// cache that admin writes invalidate.
type IngredientService struct {
	repo       *repository.IngredientRepository
	recipeRepo *repository.RecipeRepository
	cache      *lru.Cache
	journal    *audit.Journal
}

func NewIngredientService(
	repo *repository.IngredientRepository,
	recipeRepo *repository.RecipeRepository,
	journal *audit.Journal,
	cacheSize int,
) (*IngredientService, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	return &IngredientService{
		repo:       repo,
		recipeRepo: recipeRepo,
		cache:      cache,
		journal:    journal,
	}, nil
}

// Search does a case-insensitive prefix match; the list is never paginated.
func (s *IngredientService) Search(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	ingredients, err := s.repo.Search(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if ingredients == nil {
		ingredients = []models.Ingredient{}
	}
	return ingredients, nil
}

func (s *IngredientService) Get(ctx context.Context, id uint) (*models.Ingredient, error) {
	found, missing, err := s.Resolve(ctx, []uint{id})
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, apperrors.ErrIngredientNotFound
	}
	ingredient := found[id]
	return &ingredient, nil
}

// Resolve looks up ids and reports which are missing, sorted ascending.
func (s *IngredientService) Resolve(ctx context.Context, ids []uint) (map[uint]models.Ingredient, []uint, error) {
	found := make(map[uint]models.Ingredient, len(ids))
	var toFetch []uint

	for _, id := range ids {
		if _, seen := found[id]; seen {
			continue
		}
		if v, ok := s.cache.Get(id); ok {
			found[id] = v.(models.Ingredient)
			continue
		}
		toFetch = append(toFetch, id)
	}

	if len(toFetch) > 0 {
		fetched, err := s.repo.GetByIDs(ctx, toFetch)
		if err != nil {
			return nil, nil, err
		}
		for _, ing := range fetched {
			found[ing.ID] = ing
			s.cache.Add(ing.ID, ing)
		}
		logger.Log.Debug("Ingredient cache miss",
			zap.Int("requested", len(toFetch)),
			zap.Int("fetched", len(fetched)),
		)
	}

	missingSet := make(map[uint]struct{})
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missingSet[id] = struct{}{}
		}
	}
	missing := make([]uint, 0, len(missingSet))
	for id := range missingSet {
		missing = append(missing, id)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	return found, missing, nil
}

// ForRecipe lists one recipe's ingredients with amounts.
func (s *IngredientService) ForRecipe(ctx context.Context, recipeID uint) ([]dto.RecipeIngredient, error) {
	recipe, err := s.recipeRepo.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, apperrors.ErrRecipeNotFound
	}

	rows, err := s.repo.ListByRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.RecipeIngredient, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.RecipeIngredient{
			ID:              row.IngredientID,
			Name:            row.Ingredient.Name,
			MeasurementUnit: row.Ingredient.MeasurementUnit,
			Amount:          row.Amount,
		})
	}
	return out, nil
}

func (s *IngredientService) Create(ctx context.Context, actorID uint, in IngredientInput) (*models.Ingredient, error) {
	ingredient := &models.Ingredient{Name: in.Name, MeasurementUnit: in.MeasurementUnit}
	if err := s.repo.Create(ctx, ingredient); err != nil {
		return nil, duplicateAs(err, apperrors.ErrIngredientExists)
	}

	s.record(audit.ActionCreateIngredient, actorID, ingredient.ID)
	logger.Log.Info("Ingredient created",
		zap.Uint("ingredient_id", ingredient.ID),
		zap.String("name", ingredient.Name),
	)
	return ingredient, nil
}

func (s *IngredientService) Update(ctx context.Context, actorID, id uint, in IngredientInput) (*models.Ingredient, error) {
	ingredient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ingredient == nil {
		return nil, apperrors.ErrIngredientNotFound
	}

	if in.Name != "" {
		ingredient.Name = in.Name
	}
	if in.MeasurementUnit != "" {
		ingredient.MeasurementUnit = in.MeasurementUnit
	}
	if err := s.repo.Update(ctx, ingredient); err != nil {
		return nil, duplicateAs(err, apperrors.ErrIngredientExists)
	}
	s.cache.Remove(id)

	s.record(audit.ActionUpdateIngredient, actorID, id)
	logger.Log.Info("Ingredient updated", zap.Uint("ingredient_id", id))
	return ingredient, nil
}

func (s *IngredientService) Delete(ctx context.Context, actorID, id uint) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if removed == 0 {
		return apperrors.ErrIngredientNotFound
	}
	s.cache.Remove(id)

	s.record(audit.ActionDeleteIngredient, actorID, id)
	logger.Log.Info("Ingredient deleted", zap.Uint("ingredient_id", id))
	return nil
}

func (s *IngredientService) record(action audit.Action, actorID, id uint) {
	recordAudit(s.journal, audit.Entry{
		Action:   action,
		ActorID:  actorID,
		Target:   "ingredient",
		TargetID: id,
	})
}
