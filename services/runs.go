package services

import (
	"context"
	"log"
	"math"
	"time"

	"surf-leaderboard/models"
	"surf-leaderboard/utils"

	"gorm.io/gorm"
)

// PageSize is the page length of every paginated read. A response shorter
// than this signals the last page to the UI.
const PageSize = 50

// runOrder is the canonical ordering that decides PB and WR within a
// partition. Ties on identical times go to the earlier submission, then to
// the smaller id.
const runOrder = "time ASC, created_at ASC, id ASC"

// RunService owns the authoritative run state and its derived is_pb/is_wr
// flags.
type RunService struct {
	DB       *gorm.DB
	Notifier Notifier
	Ranking  *RankingService
}

func NewRunService(db *gorm.DB, notifier Notifier) *RunService {
	return &RunService{DB: db, Notifier: notifier}
}

// Insert appends a run and atomically recomputes the PB/WR flags of its
// section. The submit notification is emitted only after the transaction
// committed, so listeners always observe consistent flags.
func (s *RunService) Insert(ctx context.Context, sectionID int32, userID int64, runTime float64, proof string, ytID *string, verified bool) (int32, error) {
	if runTime < 0 {
		return 0, utils.NewError(utils.KindInvalidInput)
	}

	run := models.Run{
		SectionID: sectionID,
		UserID:    userID,
		Time:      runTime,
		Proof:     proof,
		YtID:      ytID,
		Verified:  verified,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return utils.ServerError("failed to insert run")
		}
		if err := s.recomputePb(tx, sectionID, userID); err != nil {
			return err
		}
		return s.recomputeWr(tx, sectionID)
	})
	if err != nil {
		return 0, err
	}

	if err := s.Notifier.Notify(ctx, ChannelSubmit, int64(run.ID)); err != nil {
		log.Printf("⚠️ submit notification for run %d failed: %v", run.ID, err)
	}

	s.triggerRanking(ctx, sectionID)
	return run.ID, nil
}

// Delete removes a run iff the caller owns it, the section lies in the
// current-patch range and the caller holds the Delete permission. Any other
// combination reads as NotFound.
func (s *RunService) Delete(ctx context.Context, runID int32, caller *models.User) error {
	var run models.Run
	if err := s.DB.WithContext(ctx).First(&run, runID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NewError(utils.KindNotFound)
		}
		return utils.ServerError("failed to load run")
	}

	if run.UserID != caller.ID ||
		run.SectionID < models.CurrentPatchFirstSectionID ||
		!caller.Has(models.PermDelete) {
		return utils.NewError(utils.KindNotFound)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Run{}, runID).Error; err != nil {
			return utils.ServerError("failed to delete run")
		}
		if err := s.recomputePb(tx, run.SectionID, run.UserID); err != nil {
			return err
		}
		return s.recomputeWr(tx, run.SectionID)
	})
	if err != nil {
		return err
	}

	s.triggerRanking(ctx, run.SectionID)
	return nil
}

// SetVerified marks a run as verified. Requires the Verify permission.
func (s *RunService) SetVerified(ctx context.Context, runID int32, caller *models.User) error {
	if !caller.Has(models.PermVerify) {
		return utils.NewError(utils.KindUnauthorized)
	}
	res := s.DB.WithContext(ctx).Model(&models.Run{}).Where("id = ?", runID).Update("verified", true)
	if res.Error != nil {
		return utils.ServerError("failed to verify run")
	}
	if res.RowsAffected == 0 {
		return utils.NewError(utils.KindNotFound)
	}
	return nil
}

// recomputePb restores the invariant that exactly the first run of the
// (section, user) partition carries is_pb, or none when the partition is
// empty.
func (s *RunService) recomputePb(tx *gorm.DB, sectionID int32, userID int64) error {
	if err := tx.Model(&models.Run{}).
		Where("section_id = ? AND user_id = ? AND is_pb", sectionID, userID).
		Update("is_pb", false).Error; err != nil {
		return utils.ServerError("failed to clear pb flag")
	}

	var best models.Run
	err := tx.Where("section_id = ? AND user_id = ?", sectionID, userID).
		Order(runOrder).First(&best).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return utils.ServerError("failed to find pb")
	}
	if err := tx.Model(&models.Run{}).Where("id = ?", best.ID).Update("is_pb", true).Error; err != nil {
		return utils.ServerError("failed to set pb flag")
	}
	return nil
}

// recomputeWr is the section-wide analogue of recomputePb.
func (s *RunService) recomputeWr(tx *gorm.DB, sectionID int32) error {
	if err := tx.Model(&models.Run{}).
		Where("section_id = ? AND is_wr", sectionID).
		Update("is_wr", false).Error; err != nil {
		return utils.ServerError("failed to clear wr flag")
	}

	var best models.Run
	err := tx.Where("section_id = ?", sectionID).Order(runOrder).First(&best).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return utils.ServerError("failed to find wr")
	}
	if err := tx.Model(&models.Run{}).Where("id = ?", best.ID).Update("is_wr", true).Error; err != nil {
		return utils.ServerError("failed to set wr flag")
	}
	return nil
}

func (s *RunService) triggerRanking(ctx context.Context, sectionID int32) {
	if s.Ranking == nil {
		return
	}
	var section models.Section
	if err := s.DB.First(&section, sectionID).Error; err != nil {
		log.Printf("⚠️ ranking trigger: section %d not found: %v", sectionID, err)
		return
	}
	if err := s.Ranking.RecomputeForSection(ctx, &section); err != nil {
		log.Printf("⚠️ ranking recompute for section %d failed: %v", sectionID, err)
	}
}

// WasWr keeps the runs that held the world record at some point, given the
// section's runs in created_at order.
func WasWr(runs []models.Run) []models.Run {
	best := math.Inf(1)
	var out []models.Run
	for _, r := range runs {
		if r.Time < best {
			best = r.Time
			out = append(out, r)
		}
	}
	return out
}

// WasPb is the per-user variant of WasWr.
func WasPb(runs []models.Run) []models.Run {
	best := make(map[int64]float64)
	var out []models.Run
	for _, r := range runs {
		b, ok := best[r.UserID]
		if !ok || r.Time < b {
			best[r.UserID] = r.Time
			out = append(out, r)
		}
	}
	return out
}

// SectionRuns bundles a section with its full run history.
type SectionRuns struct {
	Section models.Section `json:"section"`
	Runs    []models.Run   `json:"runs"`
}

// GetSectionRuns returns a section with all of its runs in submission order.
func (s *RunService) GetSectionRuns(ctx context.Context, sectionID int32) (*SectionRuns, error) {
	var section models.Section
	if err := s.DB.WithContext(ctx).First(&section, sectionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NewError(utils.KindNotFound)
		}
		return nil, utils.ServerError("failed to load section")
	}

	var runs []models.Run
	err := s.DB.WithContext(ctx).
		Where("section_id = ?", sectionID).
		Order("created_at ASC, id ASC").
		Preload("User").
		Find(&runs).Error
	if err != nil {
		return nil, utils.ServerError("failed to load runs")
	}
	return &SectionRuns{Section: section, Runs: runs}, nil
}

// GetCategoryRuns returns SectionRuns for every section of the tuple.
func (s *RunService) GetCategoryRuns(ctx context.Context, patch, layout, category string) ([]SectionRuns, error) {
	var sections []models.Section
	err := s.DB.WithContext(ctx).
		Where("patch = ? AND layout = ? AND category = ?", patch, layout, category).
		Order("id ASC").
		Find(&sections).Error
	if err != nil {
		return nil, utils.ServerError("failed to load sections")
	}
	if len(sections) == 0 {
		return nil, utils.NewError(utils.KindInvalidSection)
	}

	ids := make([]int32, len(sections))
	for i, sec := range sections {
		ids[i] = sec.ID
	}

	var runs []models.Run
	err = s.DB.WithContext(ctx).
		Where("section_id IN ?", ids).
		Order("created_at ASC, id ASC").
		Preload("User").
		Find(&runs).Error
	if err != nil {
		return nil, utils.ServerError("failed to load runs")
	}

	bySection := make(map[int32][]models.Run)
	for _, r := range runs {
		bySection[r.SectionID] = append(bySection[r.SectionID], r)
	}

	out := make([]SectionRuns, len(sections))
	for i, sec := range sections {
		out[i] = SectionRuns{Section: sec, Runs: bySection[sec.ID]}
	}
	return out, nil
}

// RunSort enumerates the sorting keys of the filtered run list.
type RunSort string

const (
	RunSortDate    RunSort = "date"
	RunSortTime    RunSort = "time"
	RunSortSection RunSort = "section"
)

// RunFilters narrows the filtered run list. Nil fields are ignored.
type RunFilters struct {
	User      *string
	Patch     *string
	Layout    *string
	Category  *string
	Map       *string
	Faster    *float64
	Slower    *float64
	Before    *time.Time
	After     *time.Time
	Sort      RunSort
	Ascending bool
}

// GetRuns returns one page of runs joined to section and user.
func (s *RunService) GetRuns(ctx context.Context, f RunFilters, offset int) ([]models.Run, error) {
	q := s.DB.WithContext(ctx).Model(&models.Run{}).
		Joins("JOIN sections ON sections.id = runs.section_id").
		Joins("JOIN users ON users.id = runs.user_id").
		Preload("Section").
		Preload("User")

	if f.User != nil {
		q = q.Where("users.name = ?", *f.User)
	}
	if f.Patch != nil {
		q = q.Where("sections.patch = ?", *f.Patch)
	}
	if f.Layout != nil {
		q = q.Where("sections.layout = ?", *f.Layout)
	}
	if f.Category != nil {
		q = q.Where("sections.category = ?", *f.Category)
	}
	if f.Map != nil {
		q = q.Where("sections.map = ?", *f.Map)
	}
	if f.Faster != nil {
		q = q.Where("runs.time < ?", *f.Faster)
	}
	if f.Slower != nil {
		q = q.Where("runs.time > ?", *f.Slower)
	}
	if f.Before != nil {
		q = q.Where("runs.created_at < ?", *f.Before)
	}
	if f.After != nil {
		q = q.Where("runs.created_at > ?", *f.After)
	}

	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	switch f.Sort {
	case RunSortTime:
		q = q.Order("runs.time " + dir).Order("runs.created_at ASC")
	case RunSortSection:
		q = q.Order("sections.patch " + dir).
			Order("sections.layout " + dir).
			Order("sections.category " + dir).
			Order("sections.map " + dir)
	default:
		q = q.Order("runs.created_at " + dir)
	}

	var runs []models.Run
	if err := q.Offset(offset).Limit(PageSize).Find(&runs).Error; err != nil {
		return nil, utils.ServerError("failed to query runs")
	}
	return runs, nil
}
