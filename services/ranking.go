package services

import (
	"context"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"surf-leaderboard/models"
	"surf-leaderboard/utils"

	"gorm.io/gorm"
)

// RatingInput is one current PB of a user inside a slice, paired with the
// section's WR time.
type RatingInput struct {
	SectionID int32
	PbTime    float64
	WrTime    float64
}

// RatingFunc computes a user's non-negative rating from their PBs. The
// curve is a pluggable capability; any implementation must be monotone in
// speed (a faster PB never lowers the rating) and in coverage (an extra PB
// never lowers it).
type RatingFunc func(patch string, pbs []RatingInput) float64

// basePoints parameterises the default curve per patch so the title
// thresholds stay reachable.
var basePoints = map[string]float64{
	"1.00": 100,
	"1.41": 100,
	"1.50": 100,
	"2.00": 50,
	"2.13": 180,
}

// DefaultRating awards base(patch) × (wr/pb)^4 points per section PB.
// Holding the WR yields the full base; slower PBs decay polynomially.
func DefaultRating(patch string, pbs []RatingInput) float64 {
	base, ok := basePoints[patch]
	if !ok {
		base = 100
	}
	var total float64
	for _, pb := range pbs {
		if pb.PbTime <= 0 || pb.WrTime <= 0 {
			total += base
			continue
		}
		total += base * math.Pow(pb.WrTime/pb.PbTime, 4)
	}
	return total
}

// titleThresholds lists the Surfer..MythicSurfer rating cut-offs per patch.
var titleThresholds = map[string][5]float64{
	"1.00": {300, 1000, 2000, 4000, 5500},
	"1.41": {300, 1000, 2000, 4000, 5500},
	"1.50": {300, 1000, 2000, 4000, 5500},
	"2.00": {150, 500, 1000, 2000, 2750},
	"2.13": {1000, 2500, 5000, 7500, 9000},
}

// TitleFor derives the title for a rating at a rank. Rank 1 is always
// TopOne.
func TitleFor(patch string, rating float64, rank int32) models.Title {
	if rank == 1 {
		return models.TitleTopOne
	}
	cuts, ok := titleThresholds[patch]
	if !ok {
		return models.TitleNone
	}
	title := models.TitleNone
	for i, cut := range cuts {
		if rating >= cut {
			title = models.Title(i + 1)
		}
	}
	return title
}

// RankingService derives the rank table and the activity log from the
// current PB set of each slice. Passes are idempotent and serialised per
// slice; disjoint slices may recompute in parallel.
type RankingService struct {
	DB       *gorm.DB
	Notifier Notifier
	Rating   RatingFunc

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRankingService(db *gorm.DB, notifier Notifier) *RankingService {
	return &RankingService{
		DB:       db,
		Notifier: notifier,
		Rating:   DefaultRating,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *RankingService) sliceLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func sliceKey(patch string, layout, category *string) string {
	key := patch
	if layout != nil {
		key += "|l=" + *layout
	}
	if category != nil {
		key += "|c=" + *category
	}
	return key
}

// RecomputeForSection re-runs the four slices a section contributes to.
func (s *RankingService) RecomputeForSection(ctx context.Context, section *models.Section) error {
	layout, category := section.Layout, section.Category
	slices := [][2]*string{
		{nil, nil},
		{&layout, nil},
		{nil, &category},
		{&layout, &category},
	}
	for _, sl := range slices {
		if err := s.RecomputeSlice(ctx, section.Patch, sl[0], sl[1]); err != nil {
			return err
		}
	}
	return nil
}

// RecomputeCurrentPatch sweeps every slice of the current patch. Used by
// the reconciliation scheduler to repair missed triggers.
func (s *RankingService) RecomputeCurrentPatch(ctx context.Context) error {
	if err := s.RecomputeSlice(ctx, models.CurrentPatch, nil, nil); err != nil {
		return err
	}
	for _, layout := range layouts {
		l := layout
		if err := s.RecomputeSlice(ctx, models.CurrentPatch, &l, nil); err != nil {
			return err
		}
		for _, category := range categories {
			c := category
			if err := s.RecomputeSlice(ctx, models.CurrentPatch, &l, &c); err != nil {
				return err
			}
		}
	}
	for _, category := range categories {
		c := category
		if err := s.RecomputeSlice(ctx, models.CurrentPatch, nil, &c); err != nil {
			return err
		}
	}
	return nil
}

type sliceRow struct {
	userID int64
	rating float64
	tieAt  time.Time // existing updated_at; now for first appearances
	entry  *models.RankEntry
}

// RecomputeSlice rebuilds the rank table of one slice and appends activity
// rows for every observed (rank, title) change. Running it twice without
// intervening run changes writes nothing.
func (s *RankingService) RecomputeSlice(ctx context.Context, patch string, layout, category *string) error {
	lock := s.sliceLock(sliceKey(patch, layout, category))
	lock.Lock()
	defer lock.Unlock()

	var activityIDs []int64

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sectionQ := tx.Model(&models.Section{}).Where("patch = ?", patch)
		if layout != nil {
			sectionQ = sectionQ.Where("layout = ?", *layout)
		}
		if category != nil {
			sectionQ = sectionQ.Where("category = ?", *category)
		}
		var sectionIDs []int32
		if err := sectionQ.Pluck("id", &sectionIDs).Error; err != nil {
			return utils.ServerError("failed to load slice sections")
		}
		if len(sectionIDs) == 0 {
			return nil
		}

		var pbs []models.Run
		if err := tx.Where("section_id IN ? AND is_pb", sectionIDs).Find(&pbs).Error; err != nil {
			return utils.ServerError("failed to load pbs")
		}

		wrTimes := make(map[int32]float64)
		var wrs []models.Run
		if err := tx.Where("section_id IN ? AND is_wr", sectionIDs).Find(&wrs).Error; err != nil {
			return utils.ServerError("failed to load wrs")
		}
		for _, wr := range wrs {
			wrTimes[wr.SectionID] = wr.Time
		}

		byUser := make(map[int64][]RatingInput)
		for _, pb := range pbs {
			byUser[pb.UserID] = append(byUser[pb.UserID], RatingInput{
				SectionID: pb.SectionID,
				PbTime:    pb.Time,
				WrTime:    wrTimes[pb.SectionID],
			})
		}

		entryQ := tx.Where("patch = ?", patch)
		if layout == nil {
			entryQ = entryQ.Where("layout IS NULL")
		} else {
			entryQ = entryQ.Where("layout = ?", *layout)
		}
		if category == nil {
			entryQ = entryQ.Where("category IS NULL")
		} else {
			entryQ = entryQ.Where("category = ?", *category)
		}
		var existing []models.RankEntry
		if err := entryQ.Find(&existing).Error; err != nil {
			return utils.ServerError("failed to load rank entries")
		}
		entryByUser := make(map[int64]*models.RankEntry, len(existing))
		for i := range existing {
			entryByUser[existing[i].UserID] = &existing[i]
		}

		now := time.Now()
		var maxRating float64
		rows := make([]sliceRow, 0, len(byUser))
		for userID, inputs := range byUser {
			rating := s.Rating(patch, inputs)
			if rating > maxRating {
				maxRating = rating
			}
			row := sliceRow{userID: userID, rating: rating, tieAt: now}
			if e, ok := entryByUser[userID]; ok {
				row.entry = e
				row.tieAt = e.UpdatedAt
			}
			rows = append(rows, row)
		}

		sort.Slice(rows, func(i, j int) bool {
			if rows[i].rating != rows[j].rating {
				return rows[i].rating > rows[j].rating
			}
			if !rows[i].tieAt.Equal(rows[j].tieAt) {
				return rows[i].tieAt.Before(rows[j].tieAt)
			}
			return rows[i].userID < rows[j].userID
		})

		for i, row := range rows {
			rank := int32(i + 1)
			title := TitleFor(patch, row.rating, rank)
			percentage := 0.0
			if maxRating > 0 {
				percentage = row.rating / maxRating * 100
			}

			if row.entry == nil {
				entry := models.RankEntry{
					Patch:      patch,
					Layout:     layout,
					Category:   category,
					UserID:     row.userID,
					Title:      title,
					Rank:       rank,
					Rating:     row.rating,
					Percentage: percentage,
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return utils.ServerError("failed to create rank entry")
				}
				joined := models.Activity{UserID: row.userID, RankID: &entry.ID}
				if err := tx.Create(&joined).Error; err != nil {
					return utils.ServerError("failed to append activity")
				}
				activityIDs = append(activityIDs, joined.ID)
				continue
			}

			entry := row.entry
			updates := map[string]interface{}{}
			if entry.Rating != row.rating {
				updates["rating"] = row.rating
				updates["updated_at"] = now
			}
			if entry.Percentage != percentage {
				updates["percentage"] = percentage
			}
			if entry.Rank != rank {
				updates["rank"] = rank
				act := models.Activity{
					UserID:  row.userID,
					RankID:  &entry.ID,
					RankOld: &entry.Rank,
					RankNew: &rank,
				}
				if err := tx.Create(&act).Error; err != nil {
					return utils.ServerError("failed to append activity")
				}
				activityIDs = append(activityIDs, act.ID)
			}
			if entry.Title != title {
				oldTitle, newTitle := entry.Title, title
				updates["title"] = title
				act := models.Activity{
					UserID:   row.userID,
					RankID:   &entry.ID,
					TitleOld: &oldTitle,
					TitleNew: &newTitle,
				}
				if err := tx.Create(&act).Error; err != nil {
					return utils.ServerError("failed to append activity")
				}
				activityIDs = append(activityIDs, act.ID)
			}
			if len(updates) > 0 {
				if err := tx.Model(&models.RankEntry{}).Where("id = ?", entry.ID).
					UpdateColumns(updates).Error; err != nil {
					return utils.ServerError("failed to update rank entry")
				}
			}
		}

		// Users with an entry but no remaining PB dropped out of the slice.
		// Their activity history stays; rows reference the rank by id only.
		for userID, entry := range entryByUser {
			if _, stillRanked := byUser[userID]; stillRanked {
				continue
			}
			if err := tx.Delete(&models.RankEntry{}, entry.ID).Error; err != nil {
				return utils.ServerError("failed to remove rank entry")
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range activityIDs {
		if nerr := s.Notifier.Notify(ctx, ChannelActivity, id); nerr != nil {
			log.Printf("⚠️ activity notification %d failed: %v", id, nerr)
		}
	}
	return nil
}

// GetRankings returns the current rows of a slice in display order.
func (s *RankingService) GetRankings(ctx context.Context, patch string, layout, category *string) ([]models.RankEntry, error) {
	q := s.DB.WithContext(ctx).Where("patch = ?", patch)
	if layout == nil {
		q = q.Where("layout IS NULL")
	} else {
		q = q.Where("layout = ?", *layout)
	}
	if category == nil {
		q = q.Where("category IS NULL")
	} else {
		q = q.Where("category = ?", *category)
	}

	var entries []models.RankEntry
	err := q.Order("rating DESC, updated_at ASC").Preload("User").Find(&entries).Error
	if err != nil {
		return nil, utils.ServerError("failed to load rankings")
	}
	return entries, nil
}
