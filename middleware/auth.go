// middleware/auth.go
package middleware

import (
	"log"

	"surf-leaderboard/models"
	"surf-leaderboard/session"
	"surf-leaderboard/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SessionCookie is the cookie carrying the opaque session token.
const SessionCookie = "session"

// SessionMiddleware resolves the session cookie to a user and attaches it
// to the request context. Requests without a valid session pass through
// unauthenticated; the Require* guards enforce access per route.
func SessionMiddleware(store *session.Store, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			return c.Next()
		}

		userID, ok, err := store.Lookup(c.Context(), token)
		if err != nil {
			log.Printf("⚠️ [SESSION] lookup failed: %v", err)
			return c.Next()
		}
		if !ok {
			return c.Next()
		}

		var user models.User
		if err := db.WithContext(c.Context()).First(&user, userID).Error; err != nil {
			log.Printf("⚠️ [SESSION] user %d gone: %v", userID, err)
			return c.Next()
		}

		c.Locals("user", &user)
		c.Locals("session_token", token)
		return c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// SessionToken returns the raw session token of the request, or "".
func SessionToken(c *fiber.Ctx) string {
	token, _ := c.Locals("session_token").(string)
	return token
}

// RequireAuth rejects unauthenticated requests.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return utils.RespondError(c, utils.NewError(utils.KindUnauthenticated))
		}
		return c.Next()
	}
}

// RequirePermission rejects callers lacking the permission. Administrators
// pass every check.
func RequirePermission(p models.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return utils.RespondError(c, utils.NewError(utils.KindUnauthenticated))
		}
		if !user.Has(p) {
			return utils.RespondError(c, utils.NewError(utils.KindUnauthorized))
		}
		return c.Next()
	}
}
