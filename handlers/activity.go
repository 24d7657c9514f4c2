// handlers/activity.go
package handlers

import (
	"strconv"
	"time"

	"surf-leaderboard/models"
	"surf-leaderboard/services"
	"surf-leaderboard/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupActivityRoutes(app *fiber.App, activity *services.ActivityService) {
	api := app.Group("/api")

	api.Get("/activity/get", func(c *fiber.Ctx) error {
		var f services.ActivityFilters

		switch c.Query("event") {
		case "":
		case "join":
			ev := models.EventJoin
			f.Event = &ev
		case "rank":
			ev := models.EventRankChange
			f.Event = &ev
		case "title":
			ev := models.EventTitleChange
			f.Event = &ev
		default:
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}

		if v := c.Query("user"); v != "" {
			f.User = &v
		}
		if v := c.Query("patch"); v != "" {
			f.Patch = &v
		}
		if v := c.Query("layout"); v != "" {
			f.Layout = &v
		}
		if v := c.Query("category"); v != "" {
			f.Category = &v
		}
		if v := c.Query("before"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
			}
			f.Before = &t
		}
		if v := c.Query("after"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
			}
			f.After = &t
		}

		switch c.Query("sort", "date") {
		case "date":
			f.Sort = services.ActivitySortDate
		case "section":
			f.Sort = services.ActivitySortSection
		default:
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}
		f.Ascending = c.Query("ascending") == "true"

		offset, _ := strconv.Atoi(c.Query("offset", "0"))
		if offset < 0 {
			offset = 0
		}
		offset -= offset % services.PageSize

		rows, err := activity.GetActivity(c.Context(), f, offset)
		if err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(rows)
	})
}
