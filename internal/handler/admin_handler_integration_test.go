package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/Baaaki/foodgram/internal/audit"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type AdminHandlerIntegrationTestSuite struct {
	integrationSuite
	admin  *models.User
	target *models.User
}

func (s *AdminHandlerIntegrationTestSuite) SetupTest() {
	s.integrationSuite.SetupTest()
	s.admin = s.createUser("admin", models.RoleAdmin)
	s.target = s.createUser("target", models.RoleUser)
}

func (s *AdminHandlerIntegrationTestSuite) login(email, password string) int {
	w := s.do(http.MethodPost, "/api/auth/token/login/", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	return w.Code
}

func (s *AdminHandlerIntegrationTestSuite) TestAdminRoutesRequireAdmin() {
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, fmt.Sprintf("/api/users/%d/block/", s.target.ID)},
		{http.MethodPost, fmt.Sprintf("/api/users/%d/unblock/", s.target.ID)},
		{http.MethodDelete, fmt.Sprintf("/api/users/%d/", s.target.ID)},
		{http.MethodGet, "/api/admin/users/"},
		{http.MethodGet, "/api/admin/audit/"},
	}

	moderator := s.token(s.createUser("moderator", models.RoleModerator))
	for _, p := range paths {
		w := s.do(p.method, p.path, nil, "")
		s.Equal(http.StatusUnauthorized, w.Code, p.path)

		w = s.do(p.method, p.path, nil, moderator)
		s.Equal(http.StatusForbidden, w.Code, p.path)
	}
}

func (s *AdminHandlerIntegrationTestSuite) TestBlockAndUnblock() {
	targetToken := s.token(s.target)
	adminToken := s.token(s.admin)

	w := s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/block/", s.target.ID),
		map[string]string{"reason": "spam"}, adminToken)
	s.Require().Equal(http.StatusNoContent, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/users/me/", nil, targetToken)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(http.StatusBadRequest, s.login(s.target.Email, testutil.DefaultPassword))

	w = s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/unblock/", s.target.ID), nil, adminToken)
	s.Require().Equal(http.StatusNoContent, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/users/me/", nil, targetToken)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(http.StatusOK, s.login(s.target.Email, testutil.DefaultPassword))

	entries, err := s.app.Journal.Recent(0)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionUnblockUser, entries[0].Action)
	s.Equal(audit.ActionBlockUser, entries[1].Action)
	s.Equal("spam", entries[1].Reason)
}

func (s *AdminHandlerIntegrationTestSuite) TestCannotModerateSelf() {
	token := s.token(s.admin)

	w := s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/block/", s.admin.ID), nil, token)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/", s.admin.ID), nil, token)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *AdminHandlerIntegrationTestSuite) TestUnknownUser() {
	w := s.do(http.MethodPost, "/api/users/999/block/", nil, s.token(s.admin))
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *AdminHandlerIntegrationTestSuite) TestDeleteUser() {
	testutil.CreateRecipe(s.T(), s.app.DB.DB, s.target, "soup", nil)

	w := s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/delete-user/", s.target.ID), nil, s.token(s.admin))
	s.Require().Equal(http.StatusNoContent, w.Code, w.Body.String())

	w = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d/", s.target.ID), nil, "")
	s.Equal(http.StatusNotFound, w.Code)

	var recipes int64
	s.app.DB.DB.Model(&models.Recipe{}).Where("author_id = ?", s.target.ID).Count(&recipes)
	s.Zero(recipes)
}

func (s *AdminHandlerIntegrationTestSuite) TestDeleteUserRemovesRecipeImages() {
	recipe := testutil.CreateRecipe(s.T(), s.app.DB.DB, s.target, "soup", nil)
	path := filepath.Join(s.app.MediaRoot, filepath.FromSlash(recipe.Image))
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, testutil.PNG(s.T(), 2, 2), 0o644))

	w := s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/delete-user/", s.target.ID), nil, s.token(s.admin))
	s.Require().Equal(http.StatusNoContent, w.Code, w.Body.String())

	_, err := os.Stat(path)
	s.True(os.IsNotExist(err), "recipe image should be removed with its author")
}

func (s *AdminHandlerIntegrationTestSuite) TestSetPassword() {
	w := s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/set_password/", s.target.ID), map[string]string{}, s.token(s.admin))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.errorFields(w), "new_password")

	w = s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/set_password/", s.target.ID),
		map[string]string{"new_password": "Reset98765"}, s.token(s.admin))
	s.Require().Equal(http.StatusNoContent, w.Code, w.Body.String())

	s.Equal(http.StatusBadRequest, s.login(s.target.Email, testutil.DefaultPassword))
	s.Equal(http.StatusOK, s.login(s.target.Email, "Reset98765"))
}

func (s *AdminHandlerIntegrationTestSuite) TestStaffUsers() {
	s.createUser("second_admin", models.RoleAdmin)

	w := s.do(http.MethodGet, "/api/admin/users/", nil, s.token(s.admin))
	s.Require().Equal(http.StatusOK, w.Code)

	var staff []map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &staff))
	s.Len(staff, 2)
	for _, u := range staff {
		s.Equal("admin", u["role"])
		s.NotContains(u, "password_hash")
	}
}

func (s *AdminHandlerIntegrationTestSuite) TestAuditLogNewestFirst() {
	token := s.token(s.admin)
	for _, verb := range []string{"block", "unblock", "block"} {
		w := s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/%s/", s.target.ID, verb), nil, token)
		s.Require().Equal(http.StatusNoContent, w.Code)
	}

	w := s.do(http.MethodGet, "/api/admin/audit/?limit=2", nil, token)
	s.Require().Equal(http.StatusOK, w.Code)

	var entries []map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &entries))
	s.Require().Len(entries, 2)
	s.Equal("block_user", entries[0]["action"])
	s.Equal("unblock_user", entries[1]["action"])
	s.EqualValues(s.target.ID, entries[0]["target_id"])
}

func TestAdminHandlerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerIntegrationTestSuite))
}
