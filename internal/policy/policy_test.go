package policy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func claimsFor(id uint, role models.Role) *utils.Claims {
	return &utils.Claims{UserID: id, Role: role}
}

func TestCan(t *testing.T) {
	assert.True(t, Can(models.RoleAdmin, IngredientsWrite))
	assert.True(t, Can(models.RoleAdmin, UsersManage))
	assert.True(t, Can(models.RoleModerator, RecipesModerate))
	assert.False(t, Can(models.RoleModerator, UsersManage))
	assert.False(t, Can(models.RoleUser, RecipesModerate))
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		action     Action
		claims     *utils.Claims
		wantStatus int
	}{
		{"public anonymous", RecipeList, nil, 0},
		{"auth anonymous", RecipeCreate, nil, http.StatusUnauthorized},
		{"auth user", RecipeCreate, claimsFor(1, models.RoleUser), 0},
		{"ingredient write anonymous", IngredientWrite, nil, http.StatusMethodNotAllowed},
		{"ingredient write by user", IngredientWrite, claimsFor(1, models.RoleUser), http.StatusMethodNotAllowed},
		{"ingredient write by moderator", IngredientWrite, claimsFor(1, models.RoleModerator), http.StatusMethodNotAllowed},
		{"ingredient write by admin", IngredientWrite, claimsFor(1, models.RoleAdmin), 0},
		{"admin action by user", UserAdmin, claimsFor(1, models.RoleUser), http.StatusForbidden},
		{"admin action anonymous", UserAdmin, nil, http.StatusUnauthorized},
		{"unknown action anonymous", Action("nope"), nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.action, tt.claims)
			if tt.wantStatus == 0 {
				assert.NoError(t, err)
				return
			}
			appErr, ok := apperrors.As(err)
			if assert.True(t, ok) {
				assert.Equal(t, tt.wantStatus, appErr.HTTPCode)
			}
		})
	}
}

func TestObjectRules(t *testing.T) {
	author := claimsFor(1, models.RoleUser)
	stranger := claimsFor(2, models.RoleUser)
	moderator := claimsFor(3, models.RoleModerator)

	assert.True(t, CanEditRecipe(author, 1))
	assert.False(t, CanEditRecipe(moderator, 1))
	assert.False(t, CanEditRecipe(nil, 1))

	assert.True(t, CanDeleteRecipe(author, 1))
	assert.True(t, CanDeleteRecipe(moderator, 1))
	assert.False(t, CanDeleteRecipe(stranger, 1))
}

func TestRequire(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-Role") != "" {
			c.Set("claims", claimsFor(1, models.Role(c.GetHeader("X-Test-Role"))))
		}
	})
	router.POST("/ingredients", Require(IngredientWrite), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	for role, want := range map[string]int{"": 405, "user": 405, "admin": 201} {
		req := httptest.NewRequest(http.MethodPost, "/ingredients", nil)
		req.Header.Set("X-Test-Role", role)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "role %q", role)
	}
}
