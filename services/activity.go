package services

import (
	"context"
	"time"

	"surf-leaderboard/models"
	"surf-leaderboard/utils"

	"gorm.io/gorm"
)

// ActivitySort enumerates the sorting keys of the activity feed.
type ActivitySort string

const (
	ActivitySortDate    ActivitySort = "date"
	ActivitySortSection ActivitySort = "section"
)

// ActivityFilters narrows the activity feed. Nil fields are ignored.
type ActivityFilters struct {
	Event     *models.ActivityEvent
	User      *string
	Patch     *string
	Layout    *string
	Category  *string
	Before    *time.Time
	After     *time.Time
	Sort      ActivitySort
	Ascending bool
}

// ActivityService reads the append-only activity log.
type ActivityService struct {
	DB *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{DB: db}
}

// GetActivity returns one page of activity rows.
func (s *ActivityService) GetActivity(ctx context.Context, f ActivityFilters, offset int) ([]models.Activity, error) {
	q := s.DB.WithContext(ctx).Model(&models.Activity{}).
		Joins("JOIN users ON users.id = activities.user_id").
		Joins("LEFT JOIN rank_entries ON rank_entries.id = activities.rank_id").
		Preload("User").
		Preload("Rank")

	if f.Event != nil {
		switch *f.Event {
		case models.EventJoin:
			q = q.Where("activities.title_old IS NULL AND activities.rank_old IS NULL")
		case models.EventRankChange:
			q = q.Where("activities.rank_old IS NOT NULL")
		case models.EventTitleChange:
			q = q.Where("activities.title_old IS NOT NULL")
		}
	}
	if f.User != nil {
		q = q.Where("users.name = ?", *f.User)
	}
	if f.Patch != nil {
		q = q.Where("rank_entries.patch = ?", *f.Patch)
	}
	if f.Layout != nil {
		q = q.Where("rank_entries.layout = ?", *f.Layout)
	}
	if f.Category != nil {
		q = q.Where("rank_entries.category = ?", *f.Category)
	}
	if f.Before != nil {
		q = q.Where("activities.created_at < ?", *f.Before)
	}
	if f.After != nil {
		q = q.Where("activities.created_at > ?", *f.After)
	}

	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	if f.Sort == ActivitySortSection {
		q = q.Order("rank_entries.patch " + dir).
			Order("rank_entries.layout " + dir).
			Order("rank_entries.category " + dir)
	} else {
		q = q.Order("activities.created_at " + dir)
	}

	var rows []models.Activity
	if err := q.Offset(offset).Limit(PageSize).Find(&rows).Error; err != nil {
		return nil, utils.ServerError("failed to query activity")
	}
	return rows, nil
}
