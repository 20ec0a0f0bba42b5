package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func securedRouter(production bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityHeadersMiddleware(), HSTSMiddleware(production))
	router.GET("/media/x.png", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", []byte{0x89})
	})
	return router
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	securedRouter(false).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/x.png", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "connect-src 'self' ws: wss:")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_HSTSInProduction(t *testing.T) {
	w := httptest.NewRecorder()
	securedRouter(true).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/x.png", nil))

	assert.Equal(t, hstsHeader, w.Header().Get("Strict-Transport-Security"))
}
