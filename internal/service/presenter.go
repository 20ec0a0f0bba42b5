package service

import (
	"github.com/Baaaki/foodgram/internal/dto"
	"github.com/Baaaki/foodgram/internal/media"
	"github.com/Baaaki/foodgram/internal/models"
)

// presenter turns models into response shapes, resolving media keys to URLs.
type presenter struct {
	uploader *media.Uploader
}

func (p presenter) user(u *models.User, subscribed bool) dto.User {
	out := dto.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
	if u.Avatar != "" {
		url := p.uploader.URL(u.Avatar)
		out.Avatar = &url
	}
	return out
}

func (p presenter) recipeShort(r *models.Recipe) dto.RecipeShort {
	return dto.RecipeShort{
		ID:          r.ID,
		Name:        r.Name,
		Image:       p.uploader.URL(r.Image),
		CookingTime: r.CookingTime,
	}
}

func (p presenter) recipeShorts(recipes []models.Recipe) []dto.RecipeShort {
	out := make([]dto.RecipeShort, 0, len(recipes))
	for i := range recipes {
		out = append(out, p.recipeShort(&recipes[i]))
	}
	return out
}

func (p presenter) recipe(r *models.Recipe, favorited, inCart, subscribed bool) dto.Recipe {
	ingredients := make([]dto.RecipeIngredient, 0, len(r.Ingredients))
	for _, ri := range r.Ingredients {
		ingredients = append(ingredients, dto.RecipeIngredient{
			ID:              ri.IngredientID,
			Name:            ri.Ingredient.Name,
			MeasurementUnit: ri.Ingredient.MeasurementUnit,
			Amount:          ri.Amount,
		})
	}

	return dto.Recipe{
		ID:               r.ID,
		Author:           p.user(&r.Author, subscribed),
		Name:             r.Name,
		Image:            p.uploader.URL(r.Image),
		Text:             r.Text,
		Ingredients:      ingredients,
		CookingTime:      r.CookingTime,
		IsFavorited:      favorited,
		IsInShoppingCart: inCart,
	}
}
