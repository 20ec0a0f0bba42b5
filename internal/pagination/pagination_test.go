package pagination

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextFor(target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", target, nil)
	return c
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   Params
	}{
		{"defaults", "/api/recipes/", Params{Page: 1, Limit: DefaultLimit}},
		{"explicit", "/api/recipes/?page=3&limit=6", Params{Page: 3, Limit: 6}},
		{"garbage falls back", "/api/recipes/?page=abc&limit=-2", Params{Page: 1, Limit: DefaultLimit}},
		{"limit clamped", "/api/recipes/?limit=99999", Params{Page: 1, Limit: MaxLimit}},
		{"page clamped", "/api/recipes/?page=9223372036854775807&limit=32000", Params{Page: math.MaxInt32 / MaxLimit, Limit: MaxLimit}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromRequest(contextFor(tt.target)))
		})
	}
}

func TestNew_Links(t *testing.T) {
	c := contextFor("http://example.com/api/recipes/?author=4&page=2&limit=2")
	p := FromRequest(c)

	page := New(c.Request, p, 5, []int{3, 4})

	assert.Equal(t, int64(5), page.Count)
	require.NotNil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://example.com/api/recipes/?author=4&limit=2&page=3", *page.Next)
	assert.Equal(t, "http://example.com/api/recipes/?author=4&limit=2&page=1", *page.Previous)
}

func TestNew_LastPageAndEmpty(t *testing.T) {
	c := contextFor("/api/users/")

	page := New[string](c.Request, FromRequest(c), 0, nil)

	assert.Nil(t, page.Next)
	assert.Nil(t, page.Previous)
	assert.NotNil(t, page.Results, "results must serialize as [] not null")
}

func TestParams_InRange(t *testing.T) {
	assert.True(t, Params{Page: 1, Limit: 10}.InRange(0))
	assert.True(t, Params{Page: 2, Limit: 10}.InRange(11))
	assert.False(t, Params{Page: 3, Limit: 10}.InRange(20))
}

func TestParams_HugePageIsOutOfRange(t *testing.T) {
	p := FromRequest(contextFor("http://example.com/api/users/?page=4611686018427387904&limit=2"))

	assert.Positive(t, p.Offset())
	assert.False(t, p.InRange(5))

	page := New(contextFor("http://example.com/api/users/").Request, p, 5, []int{})
	assert.Nil(t, page.Next)
}
