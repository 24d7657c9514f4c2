package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"surf-leaderboard/models"
	"surf-leaderboard/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAuthFixture(t *testing.T) (*fiber.App, *session.Store, *gorm.DB) {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	mr := miniredis.RunT(t)
	store := session.NewStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })

	app := fiber.New()
	app.Use(SessionMiddleware(store, db))
	app.Get("/me", RequireAuth(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"name": CurrentUser(c).Name})
	})
	app.Get("/verify", RequirePermission(models.PermVerify), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app, store, db
}

func loginAs(t *testing.T, store *session.Store, db *gorm.DB, name string, perms models.Permission) *http.Cookie {
	t.Helper()
	user := models.User{Name: name, PasswordHash: "x", Permissions: perms}
	require.NoError(t, db.Create(&user).Error)
	token, err := store.Create(context.Background(), user.ID, false)
	require.NoError(t, err)
	return &http.Cookie{Name: SessionCookie, Value: token}
}

func doGet(t *testing.T, app *fiber.App, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRequireAuth(t *testing.T) {
	app, store, db := newAuthFixture(t)

	assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, "/me", nil).StatusCode)

	forged := &http.Cookie{Name: SessionCookie, Value: "not-a-session"}
	assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, "/me", forged).StatusCode)

	cookie := loginAs(t, store, db, "alice", models.DefaultPermissions)
	assert.Equal(t, fiber.StatusOK, doGet(t, app, "/me", cookie).StatusCode)
}

func TestRequirePermission(t *testing.T) {
	app, store, db := newAuthFixture(t)

	assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, "/verify", nil).StatusCode)

	viewer := loginAs(t, store, db, "viewer", models.DefaultPermissions)
	assert.Equal(t, fiber.StatusForbidden, doGet(t, app, "/verify", viewer).StatusCode)

	verifier := loginAs(t, store, db, "verifier", models.DefaultPermissions|models.PermVerify)
	assert.Equal(t, fiber.StatusOK, doGet(t, app, "/verify", verifier).StatusCode)

	// Administrators pass without holding the bit.
	admin := loginAs(t, store, db, "admin", models.PermAdministrator)
	assert.Equal(t, fiber.StatusOK, doGet(t, app, "/verify", admin).StatusCode)
}

func TestSessionMiddlewareResolvesUser(t *testing.T) {
	app, store, db := newAuthFixture(t)
	cookie := loginAs(t, store, db, "alice", models.DefaultPermissions)

	resp := doGet(t, app, "/me", cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// A destroyed session stops resolving.
	require.NoError(t, store.Destroy(context.Background(), cookie.Value))
	assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, "/me", cookie).StatusCode)
}
