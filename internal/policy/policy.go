package policy

import (
	"net/http"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/models"
	"github.com/Baaaki/foodgram/internal/utils"
	"github.com/gin-gonic/gin"
)

type Capability string

const (
	IngredientsWrite Capability = "ingredients:write"
	UsersManage      Capability = "users:manage"
	RecipesModerate  Capability = "recipes:moderate"
)

var roleCapabilities = map[models.Role][]Capability{
	models.RoleAdmin:     {IngredientsWrite, UsersManage, RecipesModerate},
	models.RoleModerator: {RecipesModerate},
}

// Can reports whether role holds capability.
func Can(role models.Role, capability Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

type Action string

const (
	RecipeList         Action = "recipe.list"
	RecipeRetrieve     Action = "recipe.retrieve"
	RecipeGetLink      Action = "recipe.get_link"
	RecipeCreate       Action = "recipe.create"
	RecipeUpdate       Action = "recipe.update"
	RecipeDelete       Action = "recipe.delete"
	RecipeFavorite     Action = "recipe.favorite"
	RecipeCart         Action = "recipe.cart"
	RecipeDownloadCart Action = "recipe.download_cart"

	IngredientList     Action = "ingredient.list"
	IngredientRetrieve Action = "ingredient.retrieve"
	IngredientWrite    Action = "ingredient.write"

	UserList          Action = "user.list"
	UserRetrieve      Action = "user.retrieve"
	UserProfile       Action = "user.profile"
	UserRegister      Action = "user.register"
	UserMe            Action = "user.me"
	UserUpdateProfile Action = "user.update_profile"
	UserAvatar        Action = "user.avatar"
	UserSetPassword   Action = "user.set_password"
	UserSubscribe     Action = "user.subscribe"
	UserSubscriptions Action = "user.subscriptions"
	UserAdmin         Action = "user.admin"

	NotificationStream Action = "notification.stream"
	AuthLogout         Action = "auth.logout"
)

// Rule is the route-level requirement for an action. Object-level checks
// (owner, self) run in the services once the object is loaded.
type Rule struct {
	Authenticated bool
	Capability    Capability
	// DeniedStatus is returned when an authenticated caller lacks Capability.
	DeniedStatus int
}

var public = Rule{}
var authenticated = Rule{Authenticated: true}

var rules = map[Action]Rule{
	RecipeList:         public,
	RecipeRetrieve:     public,
	RecipeGetLink:      public,
	RecipeCreate:       authenticated,
	RecipeUpdate:       authenticated,
	RecipeDelete:       authenticated,
	RecipeFavorite:     authenticated,
	RecipeCart:         authenticated,
	RecipeDownloadCart: authenticated,

	IngredientList:     public,
	IngredientRetrieve: public,
	IngredientWrite:    {Authenticated: true, Capability: IngredientsWrite, DeniedStatus: http.StatusMethodNotAllowed},

	UserList:          public,
	UserRetrieve:      public,
	UserProfile:       public,
	UserRegister:      public,
	UserMe:            authenticated,
	UserUpdateProfile: authenticated,
	UserAvatar:        authenticated,
	UserSetPassword:   authenticated,
	UserSubscribe:     authenticated,
	UserSubscriptions: authenticated,
	UserAdmin:         {Authenticated: true, Capability: UsersManage, DeniedStatus: http.StatusForbidden},

	NotificationStream: authenticated,
	AuthLogout:         authenticated,
}

// RuleFor returns the rule for action. Unknown actions require authentication.
func RuleFor(action Action) Rule {
	if rule, ok := rules[action]; ok {
		return rule
	}
	return authenticated
}

// Check evaluates action for the caller; claims is nil for anonymous callers.
func Check(action Action, claims *utils.Claims) error {
	rule := RuleFor(action)

	if !rule.Authenticated {
		return nil
	}
	// a 405 rule hides the method from everyone without the capability,
	// anonymous callers included
	hidden := rule.DeniedStatus == http.StatusMethodNotAllowed
	if claims == nil {
		if hidden {
			return apperrors.MethodNotAllowed("method not allowed")
		}
		return apperrors.ErrAuthRequired
	}
	if rule.Capability != "" && !Can(claims.Role, rule.Capability) {
		if hidden {
			return apperrors.MethodNotAllowed("method not allowed")
		}
		return apperrors.ErrPermissionDenied
	}
	return nil
}

// Require enforces action's rule using the claims set by the auth middleware.
func Require(action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := Check(action, ClaimsFrom(c)); err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the caller's claims or nil for anonymous requests.
func ClaimsFrom(c *gin.Context) *utils.Claims {
	v, ok := c.Get("claims")
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.Claims)
	return claims
}

// CanEditRecipe: only the author edits.
func CanEditRecipe(claims *utils.Claims, authorID uint) bool {
	return claims != nil && claims.UserID == authorID
}

// CanDeleteRecipe: the author or anyone who moderates recipes.
func CanDeleteRecipe(claims *utils.Claims, authorID uint) bool {
	return claims != nil && (claims.UserID == authorID || Can(claims.Role, RecipesModerate))
}
