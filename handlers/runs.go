// handlers/runs.go
package handlers

import (
	"fmt"
	"strconv"
	"time"

	"surf-leaderboard/middleware"
	"surf-leaderboard/models"
	"surf-leaderboard/services"
	"surf-leaderboard/utils"

	"github.com/gofiber/fiber/v2"
)

// sectionRunsCacheSeconds is the cache hint on section/category run reads.
const sectionRunsCacheSeconds = 900

func SetupRunRoutes(app *fiber.App, runs *services.RunService, submit *services.SubmitService, sections *services.SectionService) {
	api := app.Group("/api")

	api.Get("/runs/id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Query("id"), 10, 32)
		if err != nil {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}

		sr, err := runs.GetSectionRuns(c.Context(), int32(id))
		if err != nil {
			return utils.RespondError(c, err)
		}
		applyHistoryFilter(c, sr)

		c.Set("Cache-Control", fmt.Sprintf("max-age=%d", sectionRunsCacheSeconds))
		return c.JSON(sr)
	})

	api.Get("/runs/category", func(c *fiber.Ctx) error {
		patch := c.Query("patch")
		layout := c.Query("layout")
		category := c.Query("category")
		if patch == "" || layout == "" || category == "" {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}

		out, err := runs.GetCategoryRuns(c.Context(), patch, layout, category)
		if err != nil {
			return utils.RespondError(c, err)
		}
		for i := range out {
			applyHistoryFilter(c, &out[i])
		}

		c.Set("Cache-Control", fmt.Sprintf("max-age=%d", sectionRunsCacheSeconds))
		return c.JSON(out)
	})

	api.Get("/runs/user", func(c *fiber.Ctx) error {
		filters, offset, err := parseRunFilters(c)
		if err != nil {
			return utils.RespondError(c, err)
		}
		out, err := runs.GetRuns(c.Context(), filters, offset)
		if err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(out)
	})

	api.Get("/maps", func(c *fiber.Ctx) error {
		names, err := sections.CurrentMaps()
		if err != nil {
			return utils.RespondError(c, err)
		}
		secs, err := sections.CurrentPatchSections()
		if err != nil {
			return utils.RespondError(c, err)
		}

		type mapEntry struct {
			Name      string           `json:"name"`
			Thumbnail string           `json:"thumbnail"`
			Sections  []models.Section `json:"sections"`
		}
		byMap := make(map[string][]models.Section)
		for _, sec := range secs {
			byMap[sec.Map] = append(byMap[sec.Map], sec)
		}
		out := make([]mapEntry, len(names))
		for i, name := range names {
			out[i] = mapEntry{
				Name:      name,
				Thumbnail: services.MapThumbnail(name),
				Sections:  byMap[name],
			}
		}

		c.Set("Cache-Control", fmt.Sprintf("max-age=%d", sectionRunsCacheSeconds))
		return c.JSON(out)
	})

	api.Post("/runs/submit", middleware.RequireAuth(), func(c *fiber.Ctx) error {
		var in services.SubmitInput
		if err := c.BodyParser(&in); err != nil {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}

		section, runID, err := submit.Submit(c.Context(), middleware.CurrentUser(c), in)
		if err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(fiber.Map{
			"id":       runID,
			"redirect": fmt.Sprintf("/section/%d", section.ID),
		})
	})

	api.Post("/runs/verify", middleware.RequirePermission(models.PermVerify), func(c *fiber.Ctx) error {
		var body struct {
			ID int32 `json:"id"`
		}
		if err := c.BodyParser(&body); err != nil {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}
		if err := runs.SetVerified(c.Context(), body.ID, middleware.CurrentUser(c)); err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	})

	api.Post("/runs/delete", middleware.RequireAuth(), func(c *fiber.Ctx) error {
		var body struct {
			ID       int32  `json:"id"`
			Redirect string `json:"redirect"`
		}
		if err := c.BodyParser(&body); err != nil {
			return utils.RespondError(c, utils.NewError(utils.KindInvalidInput))
		}
		if err := runs.Delete(c.Context(), body.ID, middleware.CurrentUser(c)); err != nil {
			return utils.RespondError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "redirect": body.Redirect})
	})
}

// applyHistoryFilter narrows a section's runs to the display-only was-WR or
// was-PB subsequence when requested. Stored flags are untouched.
func applyHistoryFilter(c *fiber.Ctx, sr *services.SectionRuns) {
	switch c.Query("filter") {
	case "was_wr":
		sr.Runs = services.WasWr(sr.Runs)
	case "was_pb":
		sr.Runs = services.WasPb(sr.Runs)
	}
}

func parseRunFilters(c *fiber.Ctx) (services.RunFilters, int, error) {
	var f services.RunFilters

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
	if v := c.Query("map"); v != "" {
		f.Map = &v
	}
	if v := c.Query("faster"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, 0, utils.NewError(utils.KindInvalidInput)
		}
		f.Faster = &t
	}
	if v := c.Query("slower"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, 0, utils.NewError(utils.KindInvalidInput)
		}
		f.Slower = &t
	}
	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, 0, utils.NewError(utils.KindInvalidInput)
		}
		f.Before = &t
	}
	if v := c.Query("after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, 0, utils.NewError(utils.KindInvalidInput)
		}
		f.After = &t
	}

	switch c.Query("sort", "date") {
	case "date":
		f.Sort = services.RunSortDate
	case "time":
		f.Sort = services.RunSortTime
	case "section":
		f.Sort = services.RunSortSection
	default:
		return f, 0, utils.NewError(utils.KindInvalidInput)
	}
	f.Ascending = c.Query("ascending") == "true"

	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	offset -= offset % services.PageSize

	return f, offset, nil
}
