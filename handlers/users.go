// handlers/users.go
package handlers

import (
	"io"
	"strconv"
	"time"

	"surf-leaderboard/middleware"
	"surf-leaderboard/services"
	"surf-leaderboard/session"
	"surf-leaderboard/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, users *services.UserService, sessions *session.Store) {
	api := app.Group("/api")

	api.Post("/user/register", func(c *fiber.Ctx) error {
		var body struct {
			Username        string `json:"username"`
			Password        string `json:"password"`
			PasswordConfirm string `json:"password_confirm"`
			Remember        bool   `json:"remember"`
		}
		if err := c.BodyParser(&body); err != nil {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}

		user, err := users.Register(c.Context(), body.Username, body.Password, body.PasswordConfirm)
		if err != nil {
			return utils.RespondError(c, err)
		}

		if err := startSession(c, sessions, user.ID, body.Remember); err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(user)
	})

	api.Post("/user/login", func(c *fiber.Ctx) error {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Remember bool   `json:"remember"`
			Redirect string `json:"redirect"`
		}
		if err := c.BodyParser(&body); err != nil {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}

		user, err := users.Login(c.Context(), body.Username, body.Password)
		if err != nil {
			return utils.RespondError(c, err)
		}

		if err := startSession(c, sessions, user.ID, body.Remember); err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(fiber.Map{"redirect": body.Redirect})
	})

	api.Post("/user/logout", func(c *fiber.Ctx) error {
		if token := middleware.SessionToken(c); token != "" {
			_ = sessions.Destroy(c.Context(), token)
		}
		c.ClearCookie(middleware.SessionCookie)
		return c.JSON(fiber.Map{"ok": true})
	})

	api.Post("/user/update/credentials", middleware.RequireAuth(), func(c *fiber.Ctx) error {
		var body struct {
			Username *string `json:"username"`
			Password *struct {
				Old string `json:"old"`
				New string `json:"new"`
			} `json:"password"`
			Redirect string `json:"redirect"`
		}
		if err := c.BodyParser(&body); err != nil {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}

		user := middleware.CurrentUser(c)
		if body.Username != nil {
			if err := users.UpdateUsername(c.Context(), user, *body.Username); err != nil {
				return utils.RespondError(c, err)
			}
		}
		if body.Password != nil {
			if err := users.UpdatePassword(c.Context(), user, body.Password.Old, body.Password.New); err != nil {
				return utils.RespondError(c, err)
			}
		}
		return c.JSON(fiber.Map{"redirect": body.Redirect})
	})

	api.Post("/user/update/bio", middleware.RequireAuth(), func(c *fiber.Ctx) error {
		var body struct {
			Bio      *string `json:"bio"`
			Redirect string  `json:"redirect"`
		}
		if err := c.BodyParser(&body); err != nil {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}
		if body.Bio != nil {
			if err := users.UpdateBio(c.Context(), middleware.CurrentUser(c), *body.Bio); err != nil {
				return utils.RespondError(c, err)
			}
		}
		return c.JSON(fiber.Map{"redirect": body.Redirect})
	})

	api.Post("/user/update/avatar", middleware.RequireAuth(), func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("avatar")
		if err != nil {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}
		if fileHeader.Size > utils.MaxAvatarSize {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}

		file, err := fileHeader.Open()
		if err != nil {
			return utils.RespondError(c, utils.ServerError("failed to open upload"))
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return utils.RespondError(c, utils.ServerError("failed to read upload"))
		}

		if err := users.UpdateAvatar(c.Context(), middleware.CurrentUser(c), data); err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	})

	api.Get("/user/get", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Query("id"), 10, 64)
		if err != nil {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}
		user, err := users.GetUser(c.Context(), id)
		if err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(user)
	})

	api.Get("/user/get/random", func(c *fiber.Ctx) error {
		user, err := users.GetRandomShowcaseUser(c.Context())
		if err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(user)
	})
}

func startSession(c *fiber.Ctx, sessions *session.Store, userID int64, remember bool) error {
	token, err := sessions.Create(c.Context(), userID, remember)
	if err != nil {
		return utils.ServerError("failed to create session")
	}

	expires := time.Now().Add(session.DefaultTTL)
	if remember {
		expires = time.Now().Add(session.RememberTTL)
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return nil
}
