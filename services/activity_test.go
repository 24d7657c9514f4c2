package services

import (
	"context"
	"testing"
	"time"

	"surf-leaderboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedActivityFixture(t *testing.T) (*ActivityService, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	activity := NewActivityService(db)

	alice := createTestUser(t, db, "alice", models.DefaultPermissions)
	bob := createTestUser(t, db, "bob", models.DefaultPermissions)

	layout := "1"
	entry := models.RankEntry{Patch: models.CurrentPatch, Layout: &layout, UserID: alice.ID, Rank: 1, Rating: 500}
	require.NoError(t, db.Create(&entry).Error)

	oldTitle, newTitle := models.TitleNone, models.TitleSurfer
	oldRank, newRank := int32(2), int32(1)
	rows := []models.Activity{
		{UserID: alice.ID, RankID: &entry.ID},
		{UserID: alice.ID, RankID: &entry.ID, RankOld: &oldRank, RankNew: &newRank},
		{UserID: bob.ID, TitleOld: &oldTitle, TitleNew: &newTitle},
	}
	require.NoError(t, db.Create(&rows).Error)
	return activity, db
}

func TestActivityClassificationIsTotal(t *testing.T) {
	oldTitle, newTitle := models.TitleNone, models.TitleSurfer
	oldRank, newRank := int32(2), int32(1)

	join := models.Activity{}
	rank := models.Activity{RankOld: &oldRank, RankNew: &newRank}
	title := models.Activity{TitleOld: &oldTitle, TitleNew: &newTitle}

	assert.Equal(t, models.EventJoin, join.Event())
	assert.Equal(t, models.EventRankChange, rank.Event())
	assert.Equal(t, models.EventTitleChange, title.Event())
}

func TestGetActivityByEvent(t *testing.T) {
	activity, _ := seedActivityFixture(t)
	ctx := context.Background()

	rows, err := activity.GetActivity(ctx, ActivityFilters{}, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	for event, want := range map[models.ActivityEvent]int{
		models.EventJoin:        1,
		models.EventRankChange:  1,
		models.EventTitleChange: 1,
	} {
		ev := event
		rows, err := activity.GetActivity(ctx, ActivityFilters{Event: &ev}, 0)
		require.NoError(t, err)
		require.Len(t, rows, want, "event %s", event)
		assert.Equal(t, event, rows[0].Event())
	}
}

func TestGetActivityByUserAndSlice(t *testing.T) {
	activity, _ := seedActivityFixture(t)
	ctx := context.Background()

	name := "alice"
	rows, err := activity.GetActivity(ctx, ActivityFilters{User: &name}, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "alice", row.User.Name)
	}

	// Slice filters go through the joined rank entry, so bob's unranked
	// title change drops out.
	patch := models.CurrentPatch
	layout := "1"
	rows, err = activity.GetActivity(ctx, ActivityFilters{Patch: &patch, Layout: &layout}, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, row := range rows {
		require.NotNil(t, row.Rank)
		assert.Equal(t, "1", *row.Rank.Layout)
	}
}

func TestGetActivityTimeWindow(t *testing.T) {
	activity, db := seedActivityFixture(t)
	ctx := context.Background()

	cutoff := time.Now().Add(time.Hour)
	rows, err := activity.GetActivity(ctx, ActivityFilters{Before: &cutoff}, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = activity.GetActivity(ctx, ActivityFilters{After: &cutoff}, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// Ascending date order starts at the oldest row.
	var oldest models.Activity
	require.NoError(t, db.Order("created_at ASC").First(&oldest).Error)
	rows, err = activity.GetActivity(ctx, ActivityFilters{Sort: ActivitySortDate, Ascending: true}, 0)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, oldest.CreatedAt, rows[0].CreatedAt)
}
