package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/media"
	"github.com/Baaaki/foodgram/internal/pagination"
	"github.com/Baaaki/foodgram/internal/policy"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/internal/service"
	"github.com/gin-gonic/gin"
)

type RecipeHandler struct {
	recipeService   *service.RecipeService
	relationService *service.RelationService
	shoppingList    *service.ShoppingListService
}

func NewRecipeHandler(
	recipeService *service.RecipeService,
	relationService *service.RelationService,
	shoppingList *service.ShoppingListService,
) *RecipeHandler {
	return &RecipeHandler{
		recipeService:   recipeService,
		relationService: relationService,
		shoppingList:    shoppingList,
	}
}

type IngredientAmountRequest struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeRequest is the JSON body for create and replace. Field rules are
// checked by the service in a fixed order, so there are no binding tags.
type RecipeRequest struct {
	Name        string                    `json:"name"`
	Text        string                    `json:"text"`
	CookingTime int                       `json:"cooking_time"`
	Image       string                    `json:"image"`
	Ingredients []IngredientAmountRequest `json:"ingredients"`
}

func (r RecipeRequest) input() service.RecipeInput {
	in := service.RecipeInput{
		Name:        r.Name,
		Text:        r.Text,
		CookingTime: r.CookingTime,
		Image:       r.Image,
		Ingredients: make([]service.IngredientAmount, 0, len(r.Ingredients)),
	}
	for _, item := range r.Ingredients {
		in.Ingredients = append(in.Ingredients, service.IngredientAmount{ID: item.ID, Amount: item.Amount})
	}
	return in
}

// recipeInput reads a JSON body or a multipart form whose "ingredients"
// field holds the JSON list and whose "image" is a file.
func recipeInput(c *gin.Context) (service.RecipeInput, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req RecipeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return service.RecipeInput{}, bindingError(err)
		}
		return req.input(), nil
	}

	req := RecipeRequest{
		Name: c.PostForm("name"),
		Text: c.PostForm("text"),
	}
	if raw := c.PostForm("cooking_time"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return service.RecipeInput{}, apperrors.BadRequest("cooking_time must be a number").
				WithDetails(map[string]string{"cooking_time": "invalid value"})
		}
		req.CookingTime = v
	}
	if raw := c.PostForm("ingredients"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Ingredients); err != nil {
			return service.RecipeInput{}, apperrors.BadRequest("ingredients must be a JSON list").
				WithDetails(map[string]string{"ingredients": "invalid value"})
		}
	}

	in := req.input()
	if fh, err := c.FormFile("image"); err == nil {
		upload, err := media.FromMultipart(fh)
		if err != nil {
			return service.RecipeInput{}, err
		}
		in.ImageUpload = upload
	} else {
		in.Image = c.PostForm("image")
	}
	return in, nil
}

// List supports ?author=, ?is_favorited=1 and ?is_in_shopping_cart=1.
// GET /api/recipes/
func (h *RecipeHandler) List(c *gin.Context) {
	p := pagination.FromRequest(c)

	var q service.RecipeQuery
	if raw := c.Query("author"); raw != "" {
		authorID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apperrors.Respond(c, apperrors.BadRequest("author must be a number").
				WithDetails(map[string]string{"author": "invalid value"}))
			return
		}
		q.AuthorID = uint(authorID)
	}
	q.IsFavorited = c.Query("is_favorited") == "1"
	q.IsInShoppingCart = c.Query("is_in_shopping_cart") == "1"

	recipes, count, err := h.recipeService.List(c.Request.Context(), viewerID(c), q, p)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	respondPage(c, p, count, recipes)
}

// GET /api/recipes/:id/
func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	recipe, err := h.recipeService.Get(c.Request.Context(), viewerID(c), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// POST /api/recipes/
func (h *RecipeHandler) Create(c *gin.Context) {
	in, err := recipeInput(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	recipe, err := h.recipeService.Create(c.Request.Context(), policy.ClaimsFrom(c), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

// Update replaces the recipe for both PUT and PATCH.
// PUT|PATCH /api/recipes/:id/
func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	in, err := recipeInput(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	recipe, err := h.recipeService.Update(c.Request.Context(), policy.ClaimsFrom(c), id, in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// DELETE /api/recipes/:id/
func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.recipeService.Delete(c.Request.Context(), policy.ClaimsFrom(c), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/recipes/:id/favorite/
func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addRelation(c, repository.FavoriteRelation)
}

// DELETE /api/recipes/:id/favorite/
func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeRelation(c, repository.FavoriteRelation)
}

// POST /api/recipes/:id/shopping_cart/
func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addRelation(c, repository.CartRelation)
}

// DELETE /api/recipes/:id/shopping_cart/
func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeRelation(c, repository.CartRelation)
}

func (h *RecipeHandler) addRelation(c *gin.Context, kind repository.Relation) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	short, err := h.relationService.Add(c.Request.Context(), kind, viewerID(c), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, short)
}

func (h *RecipeHandler) removeRelation(c *gin.Context, kind repository.Relation) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.relationService.Remove(c.Request.Context(), kind, viewerID(c), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadShoppingCart sends the aggregated cart as a text attachment.
// GET /api/recipes/download_shopping_cart/
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	text, err := h.shoppingList.Render(c.Request.Context(), viewerID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ShoppingListFilename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

// GET /api/recipes/:id/get-link/
func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	link, err := h.recipeService.ShortLink(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// ShortLinkRedirect resolves /s/:id to the recipe page.
// GET /s/:id
func (h *RecipeHandler) ShortLinkRedirect(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	target, err := h.recipeService.ShortLinkTarget(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}
