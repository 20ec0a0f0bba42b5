package testutil

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/utils"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every fixture user.
const DefaultPassword = "Test123456"

var (
	hashOnce     sync.Once
	hashedSecret string
)

// defaultHash hashes DefaultPassword once; Argon2 is too slow to repeat per fixture.
func defaultHash(t testing.TB) string {
	hashOnce.Do(func() {
		h, err := utils.HashPassword(DefaultPassword)
		if err != nil {
			t.Fatalf("Failed to hash password: %v", err)
		}
		hashedSecret = h
	})
	return hashedSecret
}

// CreateUser inserts an active user with DefaultPassword.
func CreateUser(t testing.TB, db *gorm.DB, username, email string, role models.Role) *models.User {
	user := &models.User{
		Username:     username,
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: defaultHash(t),
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

func CreateIngredient(t testing.TB, db *gorm.DB, name, unit string) *models.Ingredient {
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ingredient).Error; err != nil {
		t.Fatalf("Failed to create ingredient %s: %v", name, err)
	}
	return ingredient
}

// CreateRecipe inserts a recipe; amounts maps ingredient id to amount.
func CreateRecipe(t testing.TB, db *gorm.DB, author *models.User, name string, amounts map[uint]int) *models.Recipe {
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Text:        "Mix and cook.",
		Image:       "recipes/images/fixture.png",
		CookingTime: 10,
	}
	if err := db.Omit("Author", "Ingredients").Create(recipe).Error; err != nil {
		t.Fatalf("Failed to create recipe %s: %v", name, err)
	}

	for id, amount := range amounts {
		row := &models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: id, Amount: amount}
		if err := db.Omit("Ingredient").Create(row).Error; err != nil {
			t.Fatalf("Failed to add ingredient %d to %s: %v", id, name, err)
		}
	}
	return recipe
}

// AddToCart and AddFavorite insert relation rows directly.
func AddToCart(t testing.TB, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	row := &models.ShoppingCart{UserID: user.ID, RecipeID: recipe.ID}
	if err := db.Omit("User", "Recipe").Create(row).Error; err != nil {
		t.Fatalf("Failed to add recipe to cart: %v", err)
	}
}

func AddFavorite(t testing.TB, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	row := &models.Favorite{UserID: user.ID, RecipeID: recipe.ID}
	if err := db.Omit("User", "Recipe").Create(row).Error; err != nil {
		t.Fatalf("Failed to add favorite: %v", err)
	}
}

func Subscribe(t testing.TB, db *gorm.DB, subscriber, author *models.User) {
	row := &models.Subscription{SubscriberID: subscriber.ID, AuthorID: author.ID}
	if err := db.Omit("Author", "Subscriber").Create(row).Error; err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
}

// PNG returns a small valid PNG image.
func PNG(t testing.TB, width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// PNGDataURI is PNG wrapped as data:image/png;base64,...
func PNGDataURI(t testing.TB) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(PNG(t, 4, 4))
}
