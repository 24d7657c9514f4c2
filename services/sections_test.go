package services

import (
	"testing"

	"surf-leaderboard/models"
	"surf-leaderboard/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededSections(t *testing.T) *SectionService {
	t.Helper()
	sections := NewSectionService(openTestDB(t))
	require.NoError(t, sections.Seed())
	return sections
}

func TestSeedIsIdempotent(t *testing.T) {
	sections := seededSections(t)

	var before int64
	require.NoError(t, sections.DB.Model(&models.Section{}).Count(&before).Error)
	require.NotZero(t, before)

	require.NoError(t, sections.Seed())
	var after int64
	require.NoError(t, sections.DB.Model(&models.Section{}).Count(&after).Error)
	assert.Equal(t, before, after)
}

func TestCurrentPatchStartsAtReservedID(t *testing.T) {
	sections := seededSections(t)

	var first models.Section
	require.NoError(t, sections.DB.
		Where("patch = ?", models.CurrentPatch).
		Order("id ASC").
		First(&first).Error)
	assert.Equal(t, models.CurrentPatchFirstSectionID, first.ID)
	assert.Equal(t, "1", first.Layout)
	assert.Equal(t, models.CategoryStandard, first.Category)
	assert.Equal(t, "Alpine", first.Map)
	assert.Equal(t, "1sAL", first.Code)

	// No earlier patch bleeds into the reserved range.
	var count int64
	require.NoError(t, sections.DB.Model(&models.Section{}).
		Where("patch <> ? AND id >= ?", models.CurrentPatch, models.CurrentPatchFirstSectionID).
		Count(&count).Error)
	assert.Zero(t, count)
}

func TestLookup(t *testing.T) {
	sections := seededSections(t)

	section, err := sections.Lookup(models.CurrentPatch, "3", models.CategoryGravspeed, "Pinnacle")
	require.NoError(t, err)
	assert.Equal(t, "3gPN", section.Code)

	_, err = sections.Lookup(models.CurrentPatch, "3", models.CategoryGravspeed, "Atlantis")
	var app *utils.AppError
	require.ErrorAs(t, err, &app)
	assert.Equal(t, utils.KindInvalidSection, app.Kind)

	// Oasis only exists in the current patch.
	_, err = sections.Lookup("2.00", "1", models.CategoryStandard, "Oasis")
	require.ErrorAs(t, err, &app)
	assert.Equal(t, utils.KindInvalidSection, app.Kind)
}

func TestLookupByCode(t *testing.T) {
	sections := seededSections(t)

	section, err := sections.LookupByCode("2sBO")
	require.NoError(t, err)
	assert.Equal(t, models.CurrentPatch, section.Patch)
	assert.Equal(t, "2", section.Layout)
	assert.Equal(t, models.CategoryStandard, section.Category)
	assert.Equal(t, "Boreal", section.Map)

	// The map part matches case-insensitively.
	upper, err := sections.LookupByCode("2Sbo")
	require.NoError(t, err)
	assert.Equal(t, section.ID, upper.ID)

	grav, err := sections.LookupByCode("4gME")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryGravspeed, grav.Category)

	for _, bad := range []string{"", "6sAL", "1xAL", "1sALX", "1s", "0sAL"} {
		_, err := sections.LookupByCode(bad)
		var app *utils.AppError
		require.ErrorAs(t, err, &app, "code %q", bad)
		assert.Equal(t, utils.KindInvalidSection, app.Kind)
	}
}

func TestCurrentMapsInCatalogueOrder(t *testing.T) {
	sections := seededSections(t)

	maps, err := sections.CurrentMaps()
	require.NoError(t, err)
	require.Len(t, maps, 16)
	assert.Equal(t, "Alpine", maps[0])
	assert.Equal(t, "Pinnacle", maps[15])
}

func TestCurrentPatchSections(t *testing.T) {
	sections := seededSections(t)

	all, err := sections.CurrentPatchSections()
	require.NoError(t, err)
	// 5 layouts × 2 categories × 16 maps.
	assert.Len(t, all, 160)
	for _, s := range all {
		assert.Equal(t, models.CurrentPatch, s.Patch)
	}
}

func TestMapThumbnail(t *testing.T) {
	assert.Equal(t, "/cdn/maps/alpine.jpg", MapThumbnail("Alpine"))
	assert.Equal(t, "/cdn/maps/el-dorado.jpg", MapThumbnail("El Dorado"))
}
