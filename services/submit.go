package services

import (
	"context"
	"regexp"

	"surf-leaderboard/models"
	"surf-leaderboard/utils"
)

var ytIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// SubmitInput is the caller-supplied body of a run submission.
type SubmitInput struct {
	Layout   string  `json:"layout"`
	Category string  `json:"category"`
	Map      string  `json:"map"`
	Time     float64 `json:"time"`
	YtID     string  `json:"yt_id"`
}

// SubmitService validates and ingests a run: resolve the section in the
// current patch, confirm the proof video exists, then append to the run
// store.
type SubmitService struct {
	Sections *SectionService
	Video    VideoChecker
	Runs     *RunService
}

func NewSubmitService(sections *SectionService, video VideoChecker, runs *RunService) *SubmitService {
	return &SubmitService{Sections: sections, Video: video, Runs: runs}
}

// Submit runs the pipeline for an authenticated caller. The run is marked
// verified up front iff the caller is trusted. Returns the target section
// so the handler can redirect to its leaderboard view.
func (s *SubmitService) Submit(ctx context.Context, caller *models.User, in SubmitInput) (*models.Section, int32, error) {
	if !caller.Has(models.PermSubmit) {
		return nil, 0, utils.NewError(utils.KindUnauthorized)
	}
	if in.Time < 0 {
		return nil, 0, utils.NewError(utils.KindInvalidInput)
	}
	if !ytIDPattern.MatchString(in.YtID) {
		return nil, 0, utils.NewError(utils.KindInvalidYtID)
	}

	section, err := s.Sections.Lookup(models.CurrentPatch, in.Layout, in.Category, in.Map)
	if err != nil {
		return nil, 0, err
	}

	exists, err := s.Video.Exists(ctx, in.YtID)
	if err != nil {
		return nil, 0, utils.ServerError("video check failed")
	}
	if !exists {
		return nil, 0, utils.NewError(utils.KindInvalidYtID)
	}

	ytID := in.YtID
	proof := "https://youtu.be/" + ytID
	runID, err := s.Runs.Insert(ctx, section.ID, caller.ID, in.Time, proof, &ytID, caller.Has(models.PermTrusted))
	if err != nil {
		return nil, 0, err
	}
	return section, runID, nil
}
