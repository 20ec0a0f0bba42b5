package handler

import (
	"net/http"
	"strconv"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/service"
	"github.com/gin-gonic/gin"
)

type IngredientHandler struct {
	ingredientService *service.IngredientService
}

func NewIngredientHandler(ingredientService *service.IngredientService) *IngredientHandler {
	return &IngredientHandler{ingredientService: ingredientService}
}

// IngredientRequest binds PUT and POST bodies; PATCH may omit either field.
type IngredientRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1,max=150"`
	MeasurementUnit *string `json:"measurement_unit" binding:"omitempty,min=1,max=150"`
}

// List searches by name prefix. The result is never paginated.
// GET /api/ingredients/?name=
func (h *IngredientHandler) List(c *gin.Context) {
	ingredients, err := h.ingredientService.Search(c.Request.Context(), c.Query("name"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

// GET /api/ingredients/:id/
func (h *IngredientHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ingredient, err := h.ingredientService.Get(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

// ForRecipe lists one recipe's ingredients with amounts.
// GET /api/ingredients/recipe/?recipe_id=
func (h *IngredientHandler) ForRecipe(c *gin.Context) {
	raw := c.Query("recipe_id")
	if raw == "" {
		apperrors.Respond(c, apperrors.BadRequest("recipe_id is required").
			WithDetails(map[string]string{"recipe_id": "this field is required"}))
		return
	}
	recipeID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("recipe_id must be a number").
			WithDetails(map[string]string{"recipe_id": "invalid value"}))
		return
	}

	items, err := h.ingredientService.ForRecipe(c.Request.Context(), uint(recipeID))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// POST /api/ingredients/
func (h *IngredientHandler) Create(c *gin.Context) {
	var req IngredientRequest
	if !bindJSON(c, &req) {
		return
	}
	in, ok := fullIngredient(c, req)
	if !ok {
		return
	}

	ingredient, err := h.ingredientService.Create(c.Request.Context(), viewerID(c), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, ingredient)
}

// Update serves PUT (both fields) and PATCH (either field).
// PUT|PATCH /api/ingredients/:id/
func (h *IngredientHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req IngredientRequest
	if !bindJSON(c, &req) {
		return
	}

	var in service.IngredientInput
	if c.Request.Method == http.MethodPatch {
		// empty fields keep their stored value
		if req.Name != nil {
			in.Name = *req.Name
		}
		if req.MeasurementUnit != nil {
			in.MeasurementUnit = *req.MeasurementUnit
		}
	} else if in, ok = fullIngredient(c, req); !ok {
		return
	}

	ingredient, err := h.ingredientService.Update(c.Request.Context(), viewerID(c), id, in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

// DELETE /api/ingredients/:id/
func (h *IngredientHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.ingredientService.Delete(c.Request.Context(), viewerID(c), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func fullIngredient(c *gin.Context, req IngredientRequest) (service.IngredientInput, bool) {
	details := map[string]string{}
	if req.Name == nil {
		details["name"] = "this field is required"
	}
	if req.MeasurementUnit == nil {
		details["measurement_unit"] = "this field is required"
	}
	if len(details) > 0 {
		apperrors.Respond(c, apperrors.BadRequest("validation failed").WithDetails(details))
		return service.IngredientInput{}, false
	}
	return service.IngredientInput{Name: *req.Name, MeasurementUnit: *req.MeasurementUnit}, true
}
