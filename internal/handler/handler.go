package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/pagination"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags and makes validation
// errors report JSON field names. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
	})
}

// bindJSON decodes the body into req and answers 400 itself on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apperrors.Respond(c, bindingError(err))
		return false
	}
	return true
}

// bindingError turns binding failures into a 400 with per-field messages.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fieldMessage(fe)
		}
		return apperrors.BadRequest("validation failed").WithDetails(details)
	}
	return apperrors.BadRequest("invalid request body")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
	case "username":
		return "enter a valid username; letters, digits and ./_/- only"
	default:
		return "invalid value"
	}
}

// pathID parses a numeric path parameter. Anything else is a 404, the same
// as an unknown id.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apperrors.Respond(c, apperrors.NotFound("resource"))
		return 0, false
	}
	return uint(id), true
}

// userPathID is pathID that also accepts "me" for the caller.
func userPathID(c *gin.Context) (uint, bool) {
	if c.Param("id") == "me" || strings.HasPrefix(c.FullPath(), "/api/users/me/") {
		if uid := viewerID(c); uid != 0 {
			return uid, true
		}
		apperrors.Respond(c, apperrors.ErrAuthRequired)
		return 0, false
	}
	return pathID(c, "id")
}

// viewerID is the caller's user id, 0 for anonymous requests.
func viewerID(c *gin.Context) uint {
	return c.GetUint("user_id")
}

// recipesLimit reads ?recipes_limit=; missing or invalid means no limit.
func recipesLimit(c *gin.Context) int {
	if v, err := strconv.Atoi(c.Query("recipes_limit")); err == nil && v >= 0 {
		return v
	}
	return -1
}

// respondPage writes the paginated envelope, or 404 for a page past the end.
func respondPage[T any](c *gin.Context, p pagination.Params, count int64, results []T) {
	if !p.InRange(count) {
		apperrors.Respond(c, pagination.ErrInvalidPage)
		return
	}
	c.JSON(http.StatusOK, pagination.New(c.Request, p, count, results))
}
