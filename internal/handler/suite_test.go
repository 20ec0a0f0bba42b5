package handler_test

import (
	"net/http/httptest"

	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/testutil"
	"github.com/stretchr/testify/suite"
)

// integrationSuite gives every test a fresh stack: SQLite database,
// miniredis, temp media dir and audit journal.
type integrationSuite struct {
	suite.Suite
	app *testutil.TestApp
}

// SetupTest runs before each test
func (s *integrationSuite) SetupTest() {
	s.app = testutil.NewTestApp(s.T())
}

// TearDownTest runs after each test
func (s *integrationSuite) TearDownTest() {
	s.app.Close(s.T())
}

// createUser makes <name>@example.com with testutil.DefaultPassword.
func (s *integrationSuite) createUser(name string, role models.Role) *models.User {
	return testutil.CreateUser(s.T(), s.app.DB.DB, name, name+"@example.com", role)
}

func (s *integrationSuite) token(user *models.User) string {
	return s.app.Token(s.T(), user)
}

func (s *integrationSuite) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	return s.app.Do(method, path, body, token)
}

func (s *integrationSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	return testutil.DecodeJSON(s.T(), w)
}

// errorFields returns the "errors" object of an error response.
func (s *integrationSuite) errorFields(w *httptest.ResponseRecorder) map[string]interface{} {
	fields, _ := s.decode(w)["errors"].(map[string]interface{})
	return fields
}
