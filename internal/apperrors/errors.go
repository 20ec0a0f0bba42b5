package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable machine-readable identifier for an error.
type ErrorCode string

const (
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	CodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"
	CodeInternalError    ErrorCode = "INTERNAL_ERROR"

	CodeMissingIngredients   ErrorCode = "MISSING_INGREDIENTS"
	CodeDuplicateIngredients ErrorCode = "DUPLICATE_INGREDIENTS"
	CodeImageRequired        ErrorCode = "IMAGE_REQUIRED"
	CodeAlreadyMember        ErrorCode = "ALREADY_MEMBER"
	CodeNotMember            ErrorCode = "NOT_MEMBER"
	CodeSelfSubscription     ErrorCode = "SELF_SUBSCRIPTION"
	CodeAlreadySubscribed    ErrorCode = "ALREADY_SUBSCRIBED"
	CodeNotSubscribed        ErrorCode = "NOT_SUBSCRIBED"
	CodeEmailTooSimilar      ErrorCode = "EMAIL_TOO_SIMILAR"
	CodeInvalidCredentials   ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidImage         ErrorCode = "INVALID_IMAGE"
)

// AppError carries the HTTP status and client-facing message for a failure.
type AppError struct {
	Code     ErrorCode
	Message  string
	Details  map[string]string
	Err      error
	HTTPCode int
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so copies produced by WithDetails still compare equal
// to the sentinel they came from.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, HTTPCode: httpCode}
}

func Wrap(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, Err: err, HTTPCode: httpCode}
}

// WithDetails returns a copy with field-level details attached.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func BadRequest(message string) *AppError {
	return New(CodeValidationFailed, message, http.StatusBadRequest)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func MethodNotAllowed(message string) *AppError {
	return New(CodeMethodNotAllowed, message, http.StatusMethodNotAllowed)
}

func Internal(err error) *AppError {
	return Wrap(err, CodeInternalError, "internal server error", http.StatusInternalServerError)
}

// Domain errors shared by services and handlers.
var (
	ErrAuthRequired       = Unauthorized("authentication credentials were not provided")
	ErrInvalidToken       = Unauthorized("invalid or expired token")
	ErrInvalidCredentials = New(CodeInvalidCredentials, "invalid email or password", http.StatusBadRequest)
	ErrPermissionDenied   = Forbidden("you do not have permission to perform this action")

	ErrRecipeNotFound     = NotFound("recipe")
	ErrUserNotFound       = NotFound("user")
	ErrIngredientNotFound = NotFound("ingredient")

	ErrRecipeNameRequired   = BadRequest("recipe name is required")
	ErrEmptyIngredients     = BadRequest("ingredient list cannot be empty")
	ErrDuplicateIngredients = New(CodeDuplicateIngredients, "duplicate ingredients", http.StatusBadRequest)
	ErrImageRequired        = New(CodeImageRequired, "image required", http.StatusBadRequest)
	ErrInvalidImage         = New(CodeInvalidImage, "invalid image", http.StatusBadRequest)
	ErrInvalidBase64        = New(CodeInvalidImage, "invalid base64 string", http.StatusBadRequest)

	ErrAlreadyFavorited = New(CodeAlreadyMember, "recipe is already in favorites", http.StatusBadRequest)
	ErrAlreadyInCart    = New(CodeAlreadyMember, "recipe is already in the shopping cart", http.StatusBadRequest)
	// Removing an absent relation is reported as not found, not as a bad request.
	ErrNotFavorited = New(CodeNotMember, "recipe is not in favorites", http.StatusNotFound)
	ErrNotInCart    = New(CodeNotMember, "recipe is not in the shopping cart", http.StatusNotFound)

	ErrSelfSubscription  = New(CodeSelfSubscription, "cannot follow yourself", http.StatusBadRequest)
	ErrAlreadySubscribed = New(CodeAlreadySubscribed, "already subscribed", http.StatusBadRequest)
	ErrNotSubscribed     = New(CodeNotSubscribed, "not subscribed", http.StatusBadRequest)

	ErrEmailTooSimilar   = New(CodeEmailTooSimilar, "email too similar to an existing account", http.StatusBadRequest)
	ErrUsernameTaken     = BadRequest("a user with that username already exists")
	ErrEmailTaken        = BadRequest("a user with that email already exists")
	ErrWrongPassword     = BadRequest("current password is incorrect")
	ErrIngredientExists  = BadRequest("ingredient with this name and measurement unit already exists")
	ErrTokenNotFound     = BadRequest("token not found")
	ErrRateLimitExceeded = New(CodeTooManyRequests, "too many requests, please try again later", http.StatusTooManyRequests)
)

// MissingIngredients names the ingredient ids that do not exist.
func MissingIngredients(ids []uint) *AppError {
	return New(CodeMissingIngredients, fmt.Sprintf("missing ingredients: %v", ids), http.StatusBadRequest)
}
