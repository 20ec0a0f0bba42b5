package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Baaaki/foodgram/internal/audit"
	"github.com/Baaaki/foodgram/internal/config"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/server"
	"github.com/Baaaki/foodgram/internal/storage"
	"github.com/Baaaki/foodgram/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	TestJWTSecret = "test-secret-key"
	TestBaseURL   = "http://testserver"
)

// TestApp is the whole HTTP stack on SQLite, miniredis and a temp media dir.
type TestApp struct {
	DB        *TestDatabase
	Redis     *TestRedis
	Config    *config.Config
	Journal   *audit.Journal
	Server    *server.Server
	Router    *gin.Engine
	MediaRoot string
}

func TestConfig(mediaRoot string) *config.Config {
	return &config.Config{
		JWTSecret:            TestJWTSecret,
		JWTExpiry:            time.Hour,
		Environment:          "test",
		BaseURL:              TestBaseURL,
		StorageType:          "local",
		MediaRoot:            mediaRoot,
		MediaURL:             "/media",
		ImageMaxDimension:    64,
		IngredientCacheSize:  128,
		CORSAllowedOrigins:   []string{"*"},
		RateLimitMaxRequests: 1000,
		RateLimitWindow:      time.Minute,
		RateLimitBlockTime:   time.Minute,
	}
}

// NewTestApp builds a fresh stack; every call gets its own database.
func NewTestApp(t testing.TB) *TestApp {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	mediaRoot := filepath.Join(dir, "media")
	cfg := TestConfig(mediaRoot)

	db := SetupTestDatabase(t)
	rdb := SetupTestRedis(t)

	journal, err := audit.Open(filepath.Join(dir, "audit.log"))
	if err != nil {
		t.Fatalf("Failed to open audit journal: %v", err)
	}

	store, err := storage.NewStorage(context.Background(), storage.Config{
		Type:     "local",
		BasePath: mediaRoot,
		BaseURL:  TestBaseURL + "/media",
	})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	srv, err := server.New(server.Deps{
		Config:  cfg,
		DB:      db.DB,
		Redis:   rdb.Client,
		Storage: store,
		Journal: journal,
	})
	if err != nil {
		t.Fatalf("Failed to build server: %v", err)
	}

	return &TestApp{
		DB:        db,
		Redis:     rdb,
		Config:    cfg,
		Journal:   journal,
		Server:    srv,
		Router:    srv.Engine,
		MediaRoot: mediaRoot,
	}
}

func (a *TestApp) Close(t testing.TB) {
	_ = a.Journal.Close()
	a.Redis.Teardown(t)
	a.DB.Teardown(t)
}

// Token signs a token for user the same way login does.
func (a *TestApp) Token(t testing.TB, user *models.User) string {
	token, err := utils.GenerateToken(user, a.Config.JWTSecret, a.Config.JWTExpiry)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

// Do sends body as JSON (nil sends nothing) with an optional token.
func (a *TestApp) Do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	return a.Serve(req)
}

func (a *TestApp) Serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

// DecodeJSON unmarshals a response body into a generic map.
func DecodeJSON(t testing.TB, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Response is not a JSON object: %v (%s)", err, w.Body.String())
	}
	return out
}
