package service

import (
	"context"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/dto"
	"github.com/Baaaki/foodgram/internal/media"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/pagination"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// profileWorkers bounds concurrent profile queries per listing.
const profileWorkers = 4

type SubscriptionService struct {
	userRepo   *repository.UserRepository
	subRepo    *repository.SubscriptionRepository
	recipeRepo *repository.RecipeRepository
	notifier   *NotificationService
	present    presenter
}

func NewSubscriptionService(
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	recipeRepo *repository.RecipeRepository,
	uploader *media.Uploader,
	notifier *NotificationService,
) *SubscriptionService {
	return &SubscriptionService{
		userRepo:   userRepo,
		subRepo:    subRepo,
		recipeRepo: recipeRepo,
		notifier:   notifier,
		present:    presenter{uploader: uploader},
	}
}

// Subscribe makes subscriberID follow authorID and returns the author's profile.
func (s *SubscriptionService) Subscribe(ctx context.Context, subscriberID, authorID uint, recipesLimit int) (*dto.UserWithRecipes, error) {
	author, err := s.mustGetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}

	// 1. Self-follow is forbidden for every role
	if subscriberID == authorID {
		return nil, apperrors.ErrSelfSubscription
	}

	// 2. Existing edge
	exists, err := s.subRepo.Exists(ctx, authorID, subscriberID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrAlreadySubscribed
	}

	// 3. Create; a concurrent duplicate hits the unique index
	sub := &models.Subscription{AuthorID: authorID, SubscriberID: subscriberID}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, duplicateAs(err, apperrors.ErrAlreadySubscribed)
	}

	logger.Log.Info("User subscribed",
		zap.Uint("subscriber_id", subscriberID),
		zap.Uint("author_id", authorID),
	)

	if s.notifier != nil {
		if follower, err := s.userRepo.GetUserByID(ctx, subscriberID); err == nil && follower != nil {
			s.notifier.NotifyFollow(ctx, author, follower)
		}
	}

	return authorWithRecipes(ctx, s.recipeRepo, s.present, author, true, recipesLimit)
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, subscriberID, authorID uint) error {
	if _, err := s.mustGetUser(ctx, authorID); err != nil {
		return err
	}

	removed, err := s.subRepo.Delete(ctx, authorID, subscriberID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return apperrors.ErrNotSubscribed
	}

	logger.Log.Info("User unsubscribed",
		zap.Uint("subscriber_id", subscriberID),
		zap.Uint("author_id", authorID),
	)
	return nil
}

// List pages through followed authors by username. Each author's recipes
// and count are loaded concurrently.
func (s *SubscriptionService) List(ctx context.Context, subscriberID uint, p pagination.Params, recipesLimit int) ([]dto.UserWithRecipes, int64, error) {
	authors, count, err := s.subRepo.ListAuthors(ctx, subscriberID, p.Offset(), p.Limit)
	if err != nil {
		return nil, 0, err
	}

	results := make([]dto.UserWithRecipes, len(authors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(profileWorkers)
	for i := range authors {
		i := i
		g.Go(func() error {
			profile, err := authorWithRecipes(gctx, s.recipeRepo, s.present, &authors[i], true, recipesLimit)
			if err != nil {
				return err
			}
			results[i] = *profile
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Log.Error("Failed to assemble subscriptions",
			zap.Uint("subscriber_id", subscriberID),
			zap.Error(err),
		)
		return nil, 0, err
	}

	return results, count, nil
}

func (s *SubscriptionService) mustGetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}
