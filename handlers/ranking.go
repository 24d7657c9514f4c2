// handlers/ranking.go
package handlers

import (
	"strconv"

	"surf-leaderboard/models"
	"surf-leaderboard/services"
	"surf-leaderboard/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRankingRoutes(app *fiber.App, ranking *services.RankingService, db *gorm.DB) {
	api := app.Group("/api")

	api.Get("/ranking", func(c *fiber.Ctx) error {
		patch := c.Query("patch")
		if patch == "" {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}
		var layout, category *string
		if v := c.Query("layout"); v != "" {
			layout = &v
		}
		if v := c.Query("category"); v != "" {
			category = &v
		}

		entries, err := ranking.GetRankings(c.Context(), patch, layout, category)
		if err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(entries)
	})

	api.Get("/ranking/user", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Query("id"), 10, 64)
		if err != nil {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}

		var entries []models.RankEntry
		err = db.WithContext(c.Context()).
			Where("user_id = ?", id).
			Order("patch DESC, layout ASC, category ASC").
			Find(&entries).Error
		if err != nil {
			return utils.RespondError(c, utils.ServerError("failed to load user rankings"))
		}
		return c.JSON(entries)
	})
}
