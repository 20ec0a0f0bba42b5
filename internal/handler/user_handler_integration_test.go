package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Baaaki/foodgram/internal/broker"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type UserHandlerIntegrationTestSuite struct {
	integrationSuite
}

func registration(username, email string) map[string]string {
	return map[string]string{
		"email":      email,
		"username":   username,
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"password":   "SecurePass123",
	}
}

func (s *UserHandlerIntegrationTestSuite) TestRegisterSuccess() {
	w := s.do(http.MethodPost, "/api/users/", registration("newcook", "newcook@example.com"), "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	body := s.decode(w)
	s.Equal("newcook", body["username"])
	s.Equal("newcook@example.com", body["email"])
	s.Equal("Ada", body["first_name"])
	s.Equal("Lovelace", body["last_name"])
	s.NotZero(body["id"])
	s.NotContains(body, "password")

	// the new account can log in
	w = s.do(http.MethodPost, "/api/auth/token/login/", map[string]string{
		"email":    "newcook@example.com",
		"password": "SecurePass123",
	}, "")
	s.Equal(http.StatusOK, w.Code)
}

func (s *UserHandlerIntegrationTestSuite) TestRegisterMissingFields() {
	w := s.do(http.MethodPost, "/api/users/", map[string]string{}, "")

	s.Equal(http.StatusBadRequest, w.Code)
	fields := s.errorFields(w)
	for _, field := range []string{"email", "username", "first_name", "last_name", "password"} {
		s.Contains(fields, field)
	}
}

func (s *UserHandlerIntegrationTestSuite) TestRegisterInvalidInput() {
	testCases := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"username with spaces", registration("bad name", "bad@example.com"), "username"},
		{"invalid email", registration("goodname", "not-an-email"), "email"},
		{"username too long", registration(strings.Repeat("a", 151), "long@example.com"), "username"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			w := s.do(http.MethodPost, "/api/users/", tc.body, "")

			s.Equal(http.StatusBadRequest, w.Code)
			s.Contains(s.errorFields(w), tc.field)
		})
	}
}

func (s *UserHandlerIntegrationTestSuite) TestRegisterReservedUsername() {
	w := s.do(http.MethodPost, "/api/users/", registration("me", "someone@example.com"), "")

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.errorFields(w), "username")
}

func (s *UserHandlerIntegrationTestSuite) TestRegisterDuplicates() {
	testutil.CreateUser(s.T(), s.app.DB.DB, "taken", "taken@example.com", models.RoleUser)

	w := s.do(http.MethodPost, "/api/users/", registration("taken", "zz.other@mailbox.org"), "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.errorFields(w), "username")

	w = s.do(http.MethodPost, "/api/users/", registration("fresh", "taken@example.com"), "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.errorFields(w), "email")
}

func (s *UserHandlerIntegrationTestSuite) TestRegisterSimilarEmailRejected() {
	testutil.CreateUser(s.T(), s.app.DB.DB, "alise", "alise@example.com", models.RoleUser)

	w := s.do(http.MethodPost, "/api/users/", registration("alice", "alice@example.com"), "")

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("EMAIL_TOO_SIMILAR", s.decode(w)["code"])
}

func (s *UserHandlerIntegrationTestSuite) TestListPaginated() {
	for _, name := range []string{"carol", "alice", "bob"} {
		s.createUser(name, models.RoleUser)
	}

	w := s.do(http.MethodGet, "/api/users/?limit=2", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)

	body := s.decode(w)
	s.EqualValues(3, body["count"])
	s.Nil(body["previous"])
	s.Contains(body["next"], "page=2")

	results := body["results"].([]interface{})
	s.Require().Len(results, 2)
	s.Equal("alice", results[0].(map[string]interface{})["username"])
	s.Equal("bob", results[1].(map[string]interface{})["username"])

	w = s.do(http.MethodGet, "/api/users/?limit=2&page=2", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.Nil(body["next"])
	s.Contains(body["previous"], "page=1")
	s.Len(body["results"], 1)

	w = s.do(http.MethodGet, "/api/users/?limit=2&page=3", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *UserHandlerIntegrationTestSuite) TestGetShowsSubscription() {
	author := s.createUser("author", models.RoleUser)
	reader := s.createUser("reader", models.RoleUser)
	testutil.Subscribe(s.T(), s.app.DB.DB, reader, author)

	path := fmt.Sprintf("/api/users/%d/", author.ID)

	w := s.do(http.MethodGet, path, nil, s.token(reader))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["is_subscribed"])

	w = s.do(http.MethodGet, path, nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(false, s.decode(w)["is_subscribed"])
	s.Nil(s.decode(w)["avatar"])

	w = s.do(http.MethodGet, "/api/users/999/", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *UserHandlerIntegrationTestSuite) TestProfileWithRecipesLimit() {
	author := s.createUser("author", models.RoleUser)
	for i := 0; i < 3; i++ {
		testutil.CreateRecipe(s.T(), s.app.DB.DB, author, fmt.Sprintf("dish %d", i), nil)
	}

	w := s.do(http.MethodGet, fmt.Sprintf("/api/users/%d/profile/?recipes_limit=2", author.ID), nil, "")
	s.Require().Equal(http.StatusOK, w.Code)

	body := s.decode(w)
	s.Equal("author", body["username"])
	s.Len(body["recipes"], 2)
	s.EqualValues(3, body["recipes_count"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d/profile/", author.ID), nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["recipes"], 3)
}

func (s *UserHandlerIntegrationTestSuite) TestUpdateProfile() {
	user := s.createUser("cook", models.RoleUser)
	other := s.createUser("other", models.RoleUser)
	path := fmt.Sprintf("/api/users/%d/update_profile/", user.ID)

	w := s.do(http.MethodPatch, path, map[string]string{"first_name": "Julia"}, s.token(user))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("Julia", s.decode(w)["first_name"])
	s.Equal("cook", s.decode(w)["username"])

	w = s.do(http.MethodPut, path, map[string]string{"first_name": "Mallory"}, s.token(other))
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, path, map[string]string{"username": "other"}, s.token(user))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.errorFields(w), "username")
}

func (s *UserHandlerIntegrationTestSuite) TestAvatarLifecycle() {
	user := s.createUser("cook", models.RoleUser)
	token := s.token(user)

	w := s.do(http.MethodPut, "/api/users/me/avatar/", map[string]string{"avatar": testutil.PNGDataURI(s.T())}, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	url, _ := s.decode(w)["avatar"].(string)
	prefix := testutil.TestBaseURL + "/media/users/avatars/"
	s.Require().True(strings.HasPrefix(url, prefix), url)

	_, err := os.Stat(filepath.Join(s.app.MediaRoot, "users", "avatars", strings.TrimPrefix(url, prefix)))
	s.NoError(err, "avatar file should be stored")

	w = s.do(http.MethodGet, "/api/users/me/", nil, token)
	s.Equal(url, s.decode(w)["avatar"])

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/avatar/", user.ID), nil, token)
	s.Require().Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/users/me/", nil, token)
	s.Nil(s.decode(w)["avatar"])
}

func (s *UserHandlerIntegrationTestSuite) TestAvatarRules() {
	user := s.createUser("cook", models.RoleUser)
	other := s.createUser("other", models.RoleUser)

	w := s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/avatar/", other.ID),
		map[string]string{"avatar": testutil.PNGDataURI(s.T())}, s.token(user))
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/users/me/avatar/", map[string]string{}, s.token(user))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.errorFields(w), "avatar")

	w = s.do(http.MethodPost, "/api/users/me/avatar/", map[string]string{"avatar": "data:image/png;base64,@@@"}, s.token(user))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/users/me/avatar/", map[string]string{"avatar": testutil.PNGDataURI(s.T())}, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *UserHandlerIntegrationTestSuite) TestSetPassword() {
	user := s.createUser("cook", models.RoleUser)
	token := s.token(user)

	w := s.do(http.MethodPost, "/api/users/set_password/", map[string]string{
		"current_password": "WrongPass123",
		"new_password":     "BrandNew456",
	}, token)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.errorFields(w), "current_password")

	w = s.do(http.MethodPost, "/api/users/set_password/", map[string]string{
		"current_password": testutil.DefaultPassword,
		"new_password":     "BrandNew456",
	}, token)
	s.Require().Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodPost, "/api/auth/token/login/", map[string]string{
		"email":    "cook@example.com",
		"password": "BrandNew456",
	}, "")
	s.Equal(http.StatusOK, w.Code)
}

func (s *UserHandlerIntegrationTestSuite) TestSubscribeLifecycle() {
	author := s.createUser("author", models.RoleUser)
	reader := s.createUser("reader", models.RoleUser)
	testutil.CreateRecipe(s.T(), s.app.DB.DB, author, "soup", nil)
	token := s.token(reader)
	path := fmt.Sprintf("/api/users/%d/subscribe/", author.ID)

	w := s.do(http.MethodPost, path, nil, token)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	body := s.decode(w)
	s.Equal("author", body["username"])
	s.Equal(true, body["is_subscribed"])
	s.EqualValues(1, body["recipes_count"])

	w = s.do(http.MethodPost, path, nil, token)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("ALREADY_SUBSCRIBED", s.decode(w)["code"])

	w = s.do(http.MethodDelete, path, nil, token)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodDelete, path, nil, token)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("NOT_SUBSCRIBED", s.decode(w)["code"])

	w = s.do(http.MethodPost, "/api/users/999/subscribe/", nil, token)
	s.Equal(http.StatusNotFound, w.Code)
}

// TestSelfSubscriptionForEveryRole: no role may follow itself
func (s *UserHandlerIntegrationTestSuite) TestSelfSubscriptionForEveryRole() {
	for _, role := range []models.Role{models.RoleUser, models.RoleModerator, models.RoleAdmin} {
		user := s.createUser("self_"+string(role), role)

		w := s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", user.ID), nil, s.token(user))

		s.Equal(http.StatusBadRequest, w.Code, role)
		s.Equal("SELF_SUBSCRIPTION", s.decode(w)["code"], role)
	}
}

func (s *UserHandlerIntegrationTestSuite) TestSubscriptionsList() {
	reader := s.createUser("reader", models.RoleUser)
	for _, name := range []string{"zed", "amy"} {
		author := s.createUser(name, models.RoleUser)
		for i := 0; i < 3; i++ {
			testutil.CreateRecipe(s.T(), s.app.DB.DB, author, fmt.Sprintf("%s dish %d", name, i), nil)
		}
		testutil.Subscribe(s.T(), s.app.DB.DB, reader, author)
	}
	s.createUser("stranger", models.RoleUser)

	w := s.do(http.MethodGet, "/api/users/subscriptions/?recipes_limit=1", nil, s.token(reader))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	body := s.decode(w)
	s.EqualValues(2, body["count"])
	results := body["results"].([]interface{})
	s.Require().Len(results, 2)

	first := results[0].(map[string]interface{})
	s.Equal("amy", first["username"])
	s.Equal(true, first["is_subscribed"])
	s.Len(first["recipes"], 1)
	s.EqualValues(3, first["recipes_count"])

	w = s.do(http.MethodGet, "/api/users/subscriptions/", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *UserHandlerIntegrationTestSuite) TestSubscribeNotifiesAuthor() {
	author := s.createUser("author", models.RoleUser)
	reader := s.createUser("reader", models.RoleUser)

	sub, err := s.app.Server.Broker.Subscribe(context.Background(), author.ID)
	s.Require().NoError(err)
	defer sub.Close()

	w := s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", author.ID), nil, s.token(reader))
	s.Require().Equal(http.StatusCreated, w.Code)

	select {
	case n := <-sub.C:
		s.Equal(broker.EventFollow, n.Type)
		s.Equal(reader.ID, n.ActorID)
		s.Equal("reader", n.ActorUsername)
	case <-time.After(2 * time.Second):
		s.Fail("follow notification not delivered")
	}
}

func TestUserHandlerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(UserHandlerIntegrationTestSuite))
}
