// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRankingSweeper schedules an hourly reconciliation pass over every
// current-patch slice. The pass is idempotent, so a sweep that races a
// trigger-driven recomputation is harmless; it exists to repair rankings
// after missed triggers or manual database edits.
func (s *RankingService) StartRankingSweeper(ctx context.Context) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			if err := s.RecomputeCurrentPatch(ctx); err != nil {
				log.Printf("[Sweeper] ranking reconciliation failed: %v", err)
			} else {
				log.Println("✅ Ranking reconciliation sweep complete")
			}
		}),
	)

	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
	}()
}
