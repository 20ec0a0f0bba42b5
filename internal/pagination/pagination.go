package pagination

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 10
	MaxLimit     = 32000
)

var ErrInvalidPage = apperrors.NotFound("page")

// Params is a 1-based page request.
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// InRange reports whether the page exists for count rows. Page 1 always exists.
func (p Params) InRange(count int64) bool {
	return p.Page == 1 || int64(p.Offset()) < count
}

// Page is the list envelope returned by every paginated endpoint.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// FromRequest reads ?page= and ?limit=. Missing or malformed values fall
// back to defaults. Limit is clamped to MaxLimit and page so that
// Page*Limit stays within int32.
func FromRequest(c *gin.Context) Params {
	p := Params{Page: 1, Limit: DefaultLimit}

	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if maxPage := math.MaxInt32 / p.Limit; p.Page > maxPage {
		p.Page = maxPage
	}

	return p
}

// New builds the envelope with absolute next/previous links that keep the
// request's other query parameters.
func New[T any](r *http.Request, p Params, count int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}

	page := Page[T]{Count: count, Results: results}

	if int64(p.Page*p.Limit) < count {
		next := pageURL(r, p.Page+1, p.Limit)
		page.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(r, p.Page-1, p.Limit)
		page.Previous = &prev
	}

	return page
}

func pageURL(r *http.Request, page, limit int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	query := url.Values{}
	for k, v := range r.URL.Query() {
		query[k] = v
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: query.Encode()}
	return u.String()
}
