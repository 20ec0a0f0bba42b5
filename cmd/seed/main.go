package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/Baaaki/foodgram/internal/config"
	"github.com/Baaaki/foodgram/internal/database"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/internal/utils"
	"github.com/Baaaki/foodgram/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(!cfg.IsProduction()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	database.Connect(cfg)
	database.MustMigrate()

	ctx := context.Background()
	userRepo := repository.NewUserRepository(database.DB)
	ingredientRepo := repository.NewIngredientRepository(database.DB)

	seedAdmin(ctx, userRepo)

	if path := os.Getenv("INGREDIENTS_FILE"); path != "" {
		seedIngredients(ctx, ingredientRepo, path)
	}
}

func seedAdmin(ctx context.Context, userRepo *repository.UserRepository) {
	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminEmail == "" || adminPassword == "" {
		logger.Log.Fatal("Missing environment variables: ADMIN_USERNAME, ADMIN_EMAIL, ADMIN_PASSWORD")
	}

	// Check if admin with this email already exists
	existing, err := userRepo.GetUserByEmail(ctx, adminEmail)
	if err != nil {
		logger.Log.Fatal("Failed to look up admin", zap.Error(err))
	}
	if existing != nil {
		logger.Log.Info("Admin user already exists",
			zap.String("username", existing.Username),
			zap.String("email", existing.Email),
		)
		return
	}

	passwordHash, err := utils.HashPassword(adminPassword)
	if err != nil {
		logger.Log.Fatal("Failed to hash password", zap.Error(err))
	}

	admin := &models.User{
		Username:     adminUsername,
		Email:        adminEmail,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := userRepo.CreateUser(ctx, admin); err != nil {
		logger.Log.Fatal("Failed to create admin", zap.Error(err))
	}

	logger.Log.Info("Admin user created",
		zap.Uint("user_id", admin.ID),
		zap.String("username", admin.Username),
	)
}

// seedIngredients imports a JSON array of {name, measurement_unit}.
// Rows that already exist are skipped.
func seedIngredients(ctx context.Context, repo *repository.IngredientRepository, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Log.Fatal("Failed to read ingredients file", zap.String("path", path), zap.Error(err))
	}

	var ingredients []models.Ingredient
	if err := json.Unmarshal(data, &ingredients); err != nil {
		logger.Log.Fatal("Failed to parse ingredients file", zap.String("path", path), zap.Error(err))
	}
	for i := range ingredients {
		ingredients[i].ID = 0
	}

	inserted, err := repo.BulkInsertIgnoreDuplicates(ctx, ingredients)
	if err != nil {
		logger.Log.Fatal("Failed to import ingredients", zap.Error(err))
	}

	logger.Log.Info("Ingredients imported",
		zap.Int("in_file", len(ingredients)),
		zap.Int64("inserted", inserted),
		zap.Int64("skipped", int64(len(ingredients))-inserted),
	)
}
