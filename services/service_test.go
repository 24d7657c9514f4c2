package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"surf-leaderboard/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter atomic.Int64

// openTestDB mirrors the production gorm configuration against an in-memory
// database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", t.Name(), testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Section{},
		&models.User{},
		&models.Run{},
		&models.RankEntry{},
		&models.Activity{},
		&models.DiscordLink{},
	))
	return db
}

type sentNotification struct {
	Channel string
	ID      int64
}

// recordingNotifier captures notifications in emission order.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, channel string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{Channel: channel, ID: id})
	return nil
}

func (r *recordingNotifier) onChannel(channel string) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for _, n := range r.sent {
		if n.Channel == channel {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func createTestUser(t *testing.T, db *gorm.DB, name string, perms models.Permission) *models.User {
	t.Helper()
	user := models.User{Name: name, PasswordHash: "x", Permissions: perms}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// createTestSection inserts a section with an explicit id so tests can place
// it inside or outside the current-patch range.
func createTestSection(t *testing.T, db *gorm.DB, id int32, patch, layout, category, mapName string) *models.Section {
	t.Helper()
	section := models.Section{
		ID:       id,
		Patch:    patch,
		Layout:   layout,
		Category: category,
		Map:      mapName,
		Code:     canonicalCode(layout, category, mapName[:2]),
	}
	require.NoError(t, db.Create(&section).Error)
	return &section
}
