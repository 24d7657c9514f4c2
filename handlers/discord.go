// handlers/discord.go
package handlers

import (
	"surf-leaderboard/middleware"
	"surf-leaderboard/services"
	"surf-leaderboard/session"
	"surf-leaderboard/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupDiscordRoutes(app *fiber.App, discord *services.DiscordService, sessions *session.Store) {
	api := app.Group("/api")

	api.Post("/user/discord/add", middleware.RequireAuth(), func(c *fiber.Ctx) error {
		state := uuid.NewString()
		if err := sessions.SetOAuthState(c.Context(), middleware.SessionToken(c), state); err != nil {
			return utils.RespondError(c, utils.ServerError("failed to store oauth state"))
		}
		return c.Redirect(discord.AuthCodeURL(state), fiber.StatusSeeOther)
	})

	api.Get("/user/discord/auth", middleware.RequireAuth(), func(c *fiber.Ctx) error {
		code := c.Query("code")
		state := c.Query("state")
		if code == "" || state == "" {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}

		ok, err := sessions.CheckOAuthState(c.Context(), middleware.SessionToken(c), state)
		if err != nil {
			return utils.RespondError(c, utils.ServerError("failed to verify oauth state"))
		}
		if !ok {
			return utils.RespondError(c, utils.NewError(utils.KindUnauthorized))
		}

		link, err := discord.CompleteLink(c.Context(), middleware.CurrentUser(c), code)
		if err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(link)
	})

	api.Post("/user/discord/list", middleware.RequireAuth(), func(c *fiber.Ctx) error {
		links, err := discord.Links(c.Context(), middleware.CurrentUser(c).ID)
		if err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(links)
	})

	api.Post("/user/discord/delete", middleware.RequireAuth(), func(c *fiber.Ctx) error {
		var body struct {
			Snowflake string `json:"snowflake"`
		}
		if err := c.BodyParser(&body); err != nil || body.Snowflake == "" {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}
		if err := discord.DeleteLink(c.Context(), middleware.CurrentUser(c).ID, body.Snowflake); err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	})
}
