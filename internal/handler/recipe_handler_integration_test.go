package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Baaaki/foodgram/internal/broker"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type RecipeHandlerIntegrationTestSuite struct {
	integrationSuite
	author *models.User
	flour  *models.Ingredient
	egg    *models.Ingredient
	milk   *models.Ingredient
}

func (s *RecipeHandlerIntegrationTestSuite) SetupTest() {
	s.integrationSuite.SetupTest()

	db := s.app.DB.DB
	s.author = s.createUser("author", models.RoleUser)
	s.flour = testutil.CreateIngredient(s.T(), db, "flour", "g")
	s.egg = testutil.CreateIngredient(s.T(), db, "egg", "pcs")
	s.milk = testutil.CreateIngredient(s.T(), db, "milk", "ml")
}

func item(id uint, amount int) map[string]interface{} {
	return map[string]interface{}{"id": id, "amount": amount}
}

func (s *RecipeHandlerIntegrationTestSuite) recipeBody(items ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":         "Pancakes",
		"text":         "Whisk and fry.",
		"cooking_time": 20,
		"image":        testutil.PNGDataURI(s.T()),
		"ingredients":  items,
	}
}

func (s *RecipeHandlerIntegrationTestSuite) createViaAPI(body map[string]interface{}) map[string]interface{} {
	w := s.do(http.MethodPost, "/api/recipes/", body, s.token(s.author))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return s.decode(w)
}

func ingredientIDs(recipe map[string]interface{}) []uint {
	var ids []uint
	for _, raw := range recipe["ingredients"].([]interface{}) {
		ids = append(ids, uint(raw.(map[string]interface{})["id"].(float64)))
	}
	return ids
}

func (s *RecipeHandlerIntegrationTestSuite) TestCreateSuccess() {
	recipe := s.createViaAPI(s.recipeBody(item(s.flour.ID, 200), item(s.egg.ID, 2)))

	s.Equal("Pancakes", recipe["name"])
	s.EqualValues(20, recipe["cooking_time"])
	s.Equal(false, recipe["is_favorited"])
	s.Equal(false, recipe["is_in_shopping_cart"])
	s.True(strings.HasPrefix(recipe["image"].(string), testutil.TestBaseURL+"/media/recipes/images/"))

	author := recipe["author"].(map[string]interface{})
	s.Equal("author", author["username"])
	s.Equal(false, author["is_subscribed"])

	ingredients := recipe["ingredients"].([]interface{})
	s.Require().Len(ingredients, 2)
	first := ingredients[0].(map[string]interface{})
	s.Equal("flour", first["name"])
	s.Equal("g", first["measurement_unit"])
	s.EqualValues(200, first["amount"])
}

func (s *RecipeHandlerIntegrationTestSuite) TestCreateRequiresAuth() {
	w := s.do(http.MethodPost, "/api/recipes/", s.recipeBody(item(s.flour.ID, 1)), "")

	s.Equal(http.StatusUnauthorized, w.Code)
}

// TestCreateValidationOrder checks that the first failing rule is the one reported
func (s *RecipeHandlerIntegrationTestSuite) TestCreateValidationOrder() {
	image := testutil.PNGDataURI(s.T())

	testCases := []struct {
		name   string
		body   map[string]interface{}
		detail string
	}{
		{
			name:   "everything missing",
			body:   map[string]interface{}{},
			detail: "recipe name is required",
		},
		{
			name:   "no ingredients",
			body:   map[string]interface{}{"name": "Soup", "cooking_time": 0},
			detail: "ingredient list cannot be empty",
		},
		{
			name: "unknown ingredients",
			body: map[string]interface{}{
				"name":        "Soup",
				"ingredients": []interface{}{item(999, 1), item(998, 1), item(s.egg.ID, 0)},
			},
			detail: "missing ingredients: [998 999]",
		},
		{
			name: "duplicate ingredients",
			body: map[string]interface{}{
				"name":        "Soup",
				"ingredients": []interface{}{item(s.flour.ID, 1), item(s.flour.ID, 2)},
			},
			detail: "duplicate ingredients",
		},
		{
			name: "no image",
			body: map[string]interface{}{
				"name":         "Soup",
				"cooking_time": 0,
				"ingredients":  []interface{}{item(s.flour.ID, 1)},
			},
			detail: "image required",
		},
		{
			name: "cooking time out of range",
			body: map[string]interface{}{
				"name":         "Soup",
				"cooking_time": 0,
				"image":        image,
				"ingredients":  []interface{}{item(s.flour.ID, 0)},
			},
			detail: "cooking time must be between 1 and 32000",
		},
		{
			name: "amount out of range",
			body: map[string]interface{}{
				"name":         "Soup",
				"cooking_time": 5,
				"image":        image,
				"ingredients":  []interface{}{item(s.flour.ID, 32001)},
			},
			detail: "amount must be between 1 and 32000",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			w := s.do(http.MethodPost, "/api/recipes/", tc.body, s.token(s.author))

			s.Equal(http.StatusBadRequest, w.Code)
			s.Equal(tc.detail, s.decode(w)["detail"])
		})
	}

	var count int64
	s.app.DB.DB.Model(&models.Recipe{}).Count(&count)
	s.Zero(count)
}

func (s *RecipeHandlerIntegrationTestSuite) TestCreateInvalidImage() {
	body := s.recipeBody(item(s.flour.ID, 1))

	body["image"] = "data:image/png;base64,@@@@"
	w := s.do(http.MethodPost, "/api/recipes/", body, s.token(s.author))
	s.Equal(http.StatusBadRequest, w.Code)

	// valid base64, not an image
	body["image"] = "data:image/png;base64,aGVsbG8gd29ybGQ"
	w = s.do(http.MethodPost, "/api/recipes/", body, s.token(s.author))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RecipeHandlerIntegrationTestSuite) TestCreateMultipart() {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	s.Require().NoError(mw.WriteField("name", "Omelette"))
	s.Require().NoError(mw.WriteField("text", "Beat the eggs."))
	s.Require().NoError(mw.WriteField("cooking_time", "7"))
	ingredients, _ := json.Marshal([]interface{}{item(s.egg.ID, 3)})
	s.Require().NoError(mw.WriteField("ingredients", string(ingredients)))
	fw, err := mw.CreateFormFile("image", "omelette.png")
	s.Require().NoError(err)
	_, err = fw.Write(testutil.PNG(s.T(), 8, 8))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/recipes/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Token "+s.token(s.author))
	w := s.app.Serve(req)

	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	recipe := s.decode(w)
	s.Equal("Omelette", recipe["name"])
	s.Equal([]uint{s.egg.ID}, ingredientIDs(recipe))
}

// TestReplaceIsIdempotent: submitting the same set twice leaves it unchanged
func (s *RecipeHandlerIntegrationTestSuite) TestReplaceIsIdempotent() {
	created := s.createViaAPI(s.recipeBody(item(s.flour.ID, 200), item(s.egg.ID, 2)))
	path := fmt.Sprintf("/api/recipes/%v/", created["id"])

	body := s.recipeBody(item(s.flour.ID, 200), item(s.egg.ID, 2))
	delete(body, "image")

	var results [][]interface{}
	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPut, path, body, s.token(s.author))
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		results = append(results, s.decode(w)["ingredients"].([]interface{}))
	}

	s.Equal(created["ingredients"], results[0])
	s.Equal(results[0], results[1])

	var rows int64
	s.app.DB.DB.Model(&models.RecipeIngredient{}).Count(&rows)
	s.EqualValues(2, rows)
}

func (s *RecipeHandlerIntegrationTestSuite) TestReplaceSwapsIngredientsAndKeepsImage() {
	created := s.createViaAPI(s.recipeBody(item(s.flour.ID, 200), item(s.egg.ID, 2)))
	path := fmt.Sprintf("/api/recipes/%v/", created["id"])

	body := s.recipeBody(item(s.milk.ID, 250))
	body["name"] = "Milk pancakes"
	delete(body, "image")

	w := s.do(http.MethodPatch, path, body, s.token(s.author))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	updated := s.decode(w)
	s.Equal("Milk pancakes", updated["name"])
	s.Equal([]uint{s.milk.ID}, ingredientIDs(updated))
	s.Equal(created["image"], updated["image"])
}

func (s *RecipeHandlerIntegrationTestSuite) TestUpdateOnlyByAuthor() {
	created := s.createViaAPI(s.recipeBody(item(s.flour.ID, 200)))
	path := fmt.Sprintf("/api/recipes/%v/", created["id"])
	body := s.recipeBody(item(s.egg.ID, 1))

	for _, role := range []models.Role{models.RoleUser, models.RoleModerator, models.RoleAdmin} {
		other := s.createUser("other_"+string(role), role)

		w := s.do(http.MethodPut, path, body, s.token(other))
		s.Equal(http.StatusForbidden, w.Code, role)
	}

	w := s.do(http.MethodPut, "/api/recipes/999/", body, s.token(s.author))
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RecipeHandlerIntegrationTestSuite) TestDeleteByAuthor() {
	created := s.createViaAPI(s.recipeBody(item(s.flour.ID, 200)))
	path := fmt.Sprintf("/api/recipes/%v/", created["id"])

	w := s.do(http.MethodDelete, path, nil, s.token(s.createUser("other", models.RoleUser)))
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, path, nil, s.token(s.author))
	s.Require().Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, path, nil, "")
	s.Equal(http.StatusNotFound, w.Code)

	var rows int64
	s.app.DB.DB.Model(&models.RecipeIngredient{}).Count(&rows)
	s.Zero(rows)
}

func (s *RecipeHandlerIntegrationTestSuite) TestDeleteByModeratorIsAudited() {
	recipe := testutil.CreateRecipe(s.T(), s.app.DB.DB, s.author, "soup", map[uint]int{s.flour.ID: 10})
	moderator := s.createUser("moderator", models.RoleModerator)

	w := s.do(http.MethodDelete, fmt.Sprintf("/api/recipes/%d/", recipe.ID), nil, s.token(moderator))
	s.Require().Equal(http.StatusNoContent, w.Code)

	entries, err := s.app.Journal.Recent(0)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.EqualValues("delete_recipe", entries[0].Action)
	s.Equal(moderator.ID, entries[0].ActorID)
	s.Equal(recipe.ID, entries[0].TargetID)
}

func (s *RecipeHandlerIntegrationTestSuite) TestListFilters() {
	db := s.app.DB.DB
	other := s.createUser("other", models.RoleUser)
	viewer := s.createUser("viewer", models.RoleUser)

	mine := testutil.CreateRecipe(s.T(), db, s.author, "mine", map[uint]int{s.flour.ID: 1})
	theirs := testutil.CreateRecipe(s.T(), db, other, "theirs", map[uint]int{s.egg.ID: 1})
	testutil.AddFavorite(s.T(), db, viewer, mine)
	testutil.AddToCart(s.T(), db, viewer, theirs)

	names := func(w *httptest.ResponseRecorder) []string {
		var out []string
		for _, raw := range s.decode(w)["results"].([]interface{}) {
			out = append(out, raw.(map[string]interface{})["name"].(string))
		}
		return out
	}

	w := s.do(http.MethodGet, "/api/recipes/", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal([]string{"theirs", "mine"}, names(w))

	w = s.do(http.MethodGet, fmt.Sprintf("/api/recipes/?author=%d", s.author.ID), nil, "")
	s.Equal([]string{"mine"}, names(w))

	w = s.do(http.MethodGet, "/api/recipes/?is_favorited=1", nil, s.token(viewer))
	s.Equal([]string{"mine"}, names(w))

	w = s.do(http.MethodGet, "/api/recipes/?is_in_shopping_cart=1", nil, s.token(viewer))
	s.Equal([]string{"theirs"}, names(w))
	result := s.decode(w)["results"].([]interface{})[0].(map[string]interface{})
	s.Equal(true, result["is_in_shopping_cart"])
	s.Equal(false, result["is_favorited"])

	// anonymous callers get an empty page for membership filters
	w = s.do(http.MethodGet, "/api/recipes/?is_favorited=1", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.EqualValues(0, s.decode(w)["count"])
	s.Empty(s.decode(w)["results"])

	w = s.do(http.MethodGet, "/api/recipes/?author=abc", nil, "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RecipeHandlerIntegrationTestSuite) TestShortLink() {
	recipe := testutil.CreateRecipe(s.T(), s.app.DB.DB, s.author, "soup", nil)

	w := s.do(http.MethodGet, fmt.Sprintf("/api/recipes/%d/get-link/", recipe.ID), nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(fmt.Sprintf("%s/s/%d", testutil.TestBaseURL, recipe.ID), s.decode(w)["short-link"])

	w = s.do(http.MethodGet, fmt.Sprintf("/s/%d", recipe.ID), nil, "")
	s.Equal(http.StatusFound, w.Code)
	s.Equal(fmt.Sprintf("%s/recipes/%d", testutil.TestBaseURL, recipe.ID), w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/s/999", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RecipeHandlerIntegrationTestSuite) TestCreateNotifiesSubscribers() {
	follower := s.createUser("follower", models.RoleUser)
	testutil.Subscribe(s.T(), s.app.DB.DB, follower, s.author)

	sub, err := s.app.Server.Broker.Subscribe(context.Background(), follower.ID)
	s.Require().NoError(err)
	defer sub.Close()

	recipe := s.createViaAPI(s.recipeBody(item(s.flour.ID, 100)))

	select {
	case n := <-sub.C:
		s.Equal(broker.EventRecipe, n.Type)
		s.Equal(s.author.ID, n.ActorID)
		s.EqualValues(recipe["id"], n.RecipeID)
		s.Equal("Pancakes", n.RecipeName)
	case <-time.After(2 * time.Second):
		s.Fail("recipe notification not delivered")
	}
}

func TestRecipeHandlerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeHandlerIntegrationTestSuite))
}
