package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/audit"
	"github.com/Baaaki/foodgram/internal/dto"
	"github.com/Baaaki/foodgram/internal/media"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/pagination"
	"github.com/Baaaki/foodgram/internal/policy"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/internal/utils"
	"github.com/Baaaki/foodgram/pkg/logger"
	"go.uber.org/zap"
)

type IngredientAmount struct {
	ID     uint
	Amount int
}

// RecipeInput is the full state of a recipe for create and replace.
// Image is a data URI; ImageUpload takes precedence when set.
type RecipeInput struct {
	Name        string
	Text        string
	CookingTime int
	Ingredients []IngredientAmount
	Image       string
	ImageUpload *media.Upload
}

// RecipeQuery filters a listing. The membership filters are ignored for
// anonymous viewers, who get an empty page instead.
type RecipeQuery struct {
	AuthorID         uint
	IsFavorited      bool
	IsInShoppingCart bool
}

type RecipeService struct {
	recipeRepo   *repository.RecipeRepository
	relationRepo *repository.RelationRepository
	subRepo      *repository.SubscriptionRepository
	userRepo     *repository.UserRepository
	ingredients  *IngredientService
	uploader     *media.Uploader
	notifier     *NotificationService
	journal      *audit.Journal
	baseURL      string
	present      presenter
}

func NewRecipeService(
	recipeRepo *repository.RecipeRepository,
	relationRepo *repository.RelationRepository,
	subRepo *repository.SubscriptionRepository,
	userRepo *repository.UserRepository,
	ingredients *IngredientService,
	uploader *media.Uploader,
	notifier *NotificationService,
	journal *audit.Journal,
	baseURL string,
) *RecipeService {
	return &RecipeService{
		recipeRepo:   recipeRepo,
		relationRepo: relationRepo,
		subRepo:      subRepo,
		userRepo:     userRepo,
		ingredients:  ingredients,
		uploader:     uploader,
		notifier:     notifier,
		journal:      journal,
		baseURL:      baseURL,
		present:      presenter{uploader: uploader},
	}
}

// validate applies the write rules in order and returns the decoded image
// upload, if one was supplied.
func (s *RecipeService) validate(ctx context.Context, in RecipeInput, requireImage bool) (*media.Upload, error) {
	// 1. Name
	if in.Name == "" {
		return nil, apperrors.ErrRecipeNameRequired
	}

	// 2. Non-empty ingredient list
	if len(in.Ingredients) == 0 {
		return nil, apperrors.ErrEmptyIngredients
	}

	// 3. Every ingredient exists
	ids := make([]uint, 0, len(in.Ingredients))
	for _, item := range in.Ingredients {
		ids = append(ids, item.ID)
	}
	_, missing, err := s.ingredients.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingIngredients(missing)
	}

	// 4. No duplicates
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, apperrors.ErrDuplicateIngredients
		}
		seen[id] = struct{}{}
	}

	// 5. Image
	upload := in.ImageUpload
	if upload == nil && in.Image != "" {
		upload, err = media.FromDataURI(in.Image)
		if err != nil {
			return nil, err
		}
	}
	if upload == nil && requireImage {
		return nil, apperrors.ErrImageRequired
	}

	// 6. Ranges
	if in.CookingTime < models.MinAmount || in.CookingTime > models.MaxAmount {
		msg := fmt.Sprintf("cooking time must be between %d and %d", models.MinAmount, models.MaxAmount)
		return nil, apperrors.BadRequest(msg).WithDetails(map[string]string{"cooking_time": msg})
	}
	for _, item := range in.Ingredients {
		if item.Amount < models.MinAmount || item.Amount > models.MaxAmount {
			msg := fmt.Sprintf("amount must be between %d and %d", models.MinAmount, models.MaxAmount)
			return nil, apperrors.BadRequest(msg).WithDetails(map[string]string{"ingredients": msg})
		}
	}

	return upload, nil
}

func recipeIngredients(items []IngredientAmount) []models.RecipeIngredient {
	out := make([]models.RecipeIngredient, 0, len(items))
	for _, item := range items {
		out = append(out, models.RecipeIngredient{IngredientID: item.ID, Amount: item.Amount})
	}
	return out
}

func (s *RecipeService) Create(ctx context.Context, actor *utils.Claims, in RecipeInput) (*dto.Recipe, error) {
	start := time.Now()

	upload, err := s.validate(ctx, in, true)
	if err != nil {
		logger.Log.Debug("Recipe validation failed",
			zap.Uint("author_id", actor.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	key, err := s.uploader.Save(ctx, media.RecipeImages, upload)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    actor.UserID,
		Name:        in.Name,
		Text:        in.Text,
		Image:       key,
		CookingTime: in.CookingTime,
		Ingredients: recipeIngredients(in.Ingredients),
	}
	if err := s.recipeRepo.CreateRecipe(ctx, recipe); err != nil {
		s.uploader.Remove(ctx, key)
		logger.Log.Error("Failed to create recipe",
			zap.Uint("author_id", actor.UserID),
			zap.Error(err),
		)
		return nil, duplicateAs(err, apperrors.ErrDuplicateIngredients)
	}

	logger.Log.Info("Recipe created",
		zap.Uint("recipe_id", recipe.ID),
		zap.Uint("author_id", actor.UserID),
		zap.Int("ingredients", len(in.Ingredients)),
		zap.Duration("duration", time.Since(start)),
	)

	out, err := s.Get(ctx, actor.UserID, recipe.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if author, err := s.userRepo.GetUserByID(ctx, actor.UserID); err == nil && author != nil {
			s.notifier.NotifyNewRecipe(ctx, author, recipe)
		}
	}

	return out, nil
}

// Update replaces the recipe's fields and whole ingredient set. PUT and PATCH
// share it. Omitting the image keeps the stored one.
func (s *RecipeService) Update(ctx context.Context, actor *utils.Claims, id uint, in RecipeInput) (*dto.Recipe, error) {
	recipe, err := s.mustGetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanEditRecipe(actor, recipe.AuthorID) {
		return nil, apperrors.ErrPermissionDenied
	}

	upload, err := s.validate(ctx, in, false)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"name":         in.Name,
		"text":         in.Text,
		"cooking_time": in.CookingTime,
	}

	var newKey string
	if upload != nil {
		newKey, err = s.uploader.Save(ctx, media.RecipeImages, upload)
		if err != nil {
			return nil, err
		}
		fields["image"] = newKey
	}

	if err := s.recipeRepo.ReplaceRecipe(ctx, id, fields, recipeIngredients(in.Ingredients)); err != nil {
		s.uploader.Remove(ctx, newKey)
		logger.Log.Error("Failed to update recipe",
			zap.Uint("recipe_id", id),
			zap.Error(err),
		)
		return nil, duplicateAs(err, apperrors.ErrDuplicateIngredients)
	}
	if newKey != "" {
		s.uploader.Remove(ctx, recipe.Image)
	}

	logger.Log.Info("Recipe updated",
		zap.Uint("recipe_id", id),
		zap.Int("ingredients", len(in.Ingredients)),
		zap.Bool("image_replaced", newKey != ""),
	)

	return s.Get(ctx, actor.UserID, id)
}

// Delete is allowed to the author and to recipe moderators. Deleting someone
// else's recipe is journaled.
func (s *RecipeService) Delete(ctx context.Context, actor *utils.Claims, id uint) error {
	recipe, err := s.mustGetRecipe(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteRecipe(actor, recipe.AuthorID) {
		return apperrors.ErrPermissionDenied
	}

	if err := s.recipeRepo.DeleteRecipe(ctx, id); err != nil {
		logger.Log.Error("Failed to delete recipe",
			zap.Uint("recipe_id", id),
			zap.Error(err),
		)
		return err
	}
	s.uploader.Remove(ctx, recipe.Image)

	if actor.UserID != recipe.AuthorID {
		recordAudit(s.journal, audit.Entry{
			Action:   audit.ActionDeleteRecipe,
			ActorID:  actor.UserID,
			Target:   "recipe",
			TargetID: id,
		})
	}

	logger.Log.Info("Recipe deleted",
		zap.Uint("recipe_id", id),
		zap.Uint("actor_id", actor.UserID),
	)
	return nil
}

// Get returns one recipe as seen by viewerID (0 for anonymous).
func (s *RecipeService) Get(ctx context.Context, viewerID, id uint) (*dto.Recipe, error) {
	recipe, err := s.recipeRepo.GetRecipeDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, apperrors.ErrRecipeNotFound
	}

	views, err := s.decorate(ctx, viewerID, []models.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *RecipeService) List(ctx context.Context, viewerID uint, q RecipeQuery, p pagination.Params) ([]dto.Recipe, int64, error) {
	if viewerID == 0 && (q.IsFavorited || q.IsInShoppingCart) {
		return []dto.Recipe{}, 0, nil
	}

	filter := repository.RecipeFilter{AuthorID: q.AuthorID}
	if q.IsFavorited {
		filter.FavoritedBy = viewerID
	}
	if q.IsInShoppingCart {
		filter.InCartOf = viewerID
	}

	recipes, count, err := s.recipeRepo.ListRecipes(ctx, filter, p.Offset(), p.Limit)
	if err != nil {
		return nil, 0, err
	}

	views, err := s.decorate(ctx, viewerID, recipes)
	if err != nil {
		return nil, 0, err
	}
	return views, count, nil
}

// decorate adds the viewer-relative flags with one query per flag.
func (s *RecipeService) decorate(ctx context.Context, viewerID uint, recipes []models.Recipe) ([]dto.Recipe, error) {
	recipeIDs := make([]uint, 0, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		recipeIDs = append(recipeIDs, r.ID)
		authorIDs = append(authorIDs, r.AuthorID)
	}

	favorited, err := s.relationRepo.MembersAmong(ctx, repository.FavoriteRelation, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := s.relationRepo.MembersAmong(ctx, repository.CartRelation, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	followed, err := s.subRepo.FollowedAmong(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]dto.Recipe, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		out = append(out, s.present.recipe(r, favorited[r.ID], inCart[r.ID], followed[r.AuthorID]))
	}
	return out, nil
}

// ShortLink returns the public short URL of a recipe.
func (s *RecipeService) ShortLink(ctx context.Context, id uint) (*dto.ShortLink, error) {
	if _, err := s.mustGetRecipe(ctx, id); err != nil {
		return nil, err
	}
	return &dto.ShortLink{ShortLink: fmt.Sprintf("%s/s/%d", s.baseURL, id)}, nil
}

// ShortLinkTarget resolves a short link to the recipe's frontend page.
func (s *RecipeService) ShortLinkTarget(ctx context.Context, id uint) (string, error) {
	if _, err := s.mustGetRecipe(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/recipes/%d", s.baseURL, id), nil
}

func (s *RecipeService) mustGetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	recipe, err := s.recipeRepo.GetRecipeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, apperrors.ErrRecipeNotFound
	}
	return recipe, nil
}
