// workers/notify_worker.go
package workers

import (
	"context"
	"log"
	"strconv"
	"time"

	"surf-leaderboard/models"
	"surf-leaderboard/services"

	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"
)

// NotifyWorker is the notification bridge: it consumes the database's
// submit and activity channels and fans the events out to webhooks and
// Discord role-connection updates.
//
// Each channel gets its own listener connection and goroutine; delivery is
// at-most-once and transient failures are logged and skipped so the loops
// keep draining.
type NotifyWorker struct {
	ConnString string
	DB         *gorm.DB
	Discord    *services.DiscordService

	WebhookPB       string
	WebhookWR       string
	WebhookActivity string
}

func NewNotifyWorker(connString string, db *gorm.DB, discord *services.DiscordService, webhookPB, webhookWR, webhookActivity string) *NotifyWorker {
	return &NotifyWorker{
		ConnString:      connString,
		DB:              db,
		Discord:         discord,
		WebhookPB:       webhookPB,
		WebhookWR:       webhookWR,
		WebhookActivity: webhookActivity,
	}
}

// Start launches both listener loops. They exit when ctx is cancelled.
func (w *NotifyWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting notification bridge (submit + activity listeners)…")
	go w.listen(ctx, services.ChannelSubmit, w.handleSubmit)
	go w.listen(ctx, services.ChannelActivity, w.handleActivity)
}

// listen holds a dedicated connection on one channel, reconnecting with
// capped backoff when the connection drops.
func (w *NotifyWorker) listen(ctx context.Context, channel string, handle func(ctx context.Context, id int64)) {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			log.Printf("⏹️ %s listener stopped", channel)
			return
		}

		conn, err := pgx.Connect(ctx, w.ConnString)
		if err != nil {
			log.Printf("❌ %s listener connect failed: %v (retry in %v)", channel, err, backoff)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			log.Printf("❌ LISTEN %s failed: %v", channel, err)
			_ = conn.Close(ctx)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		log.Printf("✅ Listening on %q", channel)
		backoff = time.Second

		for {
			notification, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("⚠️ %s listener lost connection: %v", channel, err)
				}
				_ = conn.Close(context.Background())
				break
			}

			id, err := strconv.ParseInt(notification.Payload, 10, 64)
			if err != nil {
				log.Printf("⚠️ %s: unparseable payload %q", channel, notification.Payload)
				continue
			}
			handle(ctx, id)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > 30*time.Second {
		next = 30 * time.Second
	}
	return next
}

// handleSubmit posts a record webhook for runs that took WR or PB.
func (w *NotifyWorker) handleSubmit(ctx context.Context, runID int64) {
	var run models.Run
	err := w.DB.WithContext(ctx).Preload("User").Preload("Section").First(&run, runID).Error
	if err != nil {
		log.Printf("⚠️ submit %d: failed to load run: %v", runID, err)
		return
	}

	switch {
	case run.IsWr:
		prev := w.previousRecord(ctx, run.SectionID, nil, run.ID)
		w.postRecordWebhook(ctx, w.WebhookWR, "New World Record", "First record on this section.", &run, prev, colorGold)
	case run.IsPb:
		prev := w.previousRecord(ctx, run.SectionID, &run.UserID, run.ID)
		w.postRecordWebhook(ctx, w.WebhookPB, "New Personal Best", "First personal best on this section.", &run, prev, colorBlue)
	}
}

// previousRecord finds the run the new record displaced: the second-best in
// (time ASC, created_at ASC, id ASC) order, section-wide for WRs or
// per-user for PBs.
func (w *NotifyWorker) previousRecord(ctx context.Context, sectionID int32, userID *int64, _ int32) *models.Run {
	q := w.DB.WithContext(ctx).Where("section_id = ?", sectionID)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	var prev models.Run
	err := q.Order("time ASC, created_at ASC, id ASC").
		Offset(1).
		Preload("User").
		First(&prev).Error
	if err != nil {
		return nil
	}
	return &prev
}

// handleActivity classifies the row and dispatches the matching side
// effects. Rank changes are a reserved slot with no webhook.
func (w *NotifyWorker) handleActivity(ctx context.Context, activityID int64) {
	var act models.Activity
	err := w.DB.WithContext(ctx).Preload("User").Preload("Rank").First(&act, activityID).Error
	if err != nil {
		log.Printf("⚠️ activity %d: failed to load: %v", activityID, err)
		return
	}

	switch act.Event() {
	case models.EventTitleChange:
		w.handleTitleChange(ctx, &act)
	case models.EventRankChange:
		log.Printf("[BRIDGE] rank change for user %d (%d → %d), no webhook", act.UserID, *act.RankOld, *act.RankNew)
	case models.EventJoin:
		w.postActivityWebhook(ctx, joinEmbed(&act))
	}
}

func (w *NotifyWorker) handleTitleChange(ctx context.Context, act *models.Activity) {
	w.postActivityWebhook(ctx, titleEmbed(act))

	links, err := w.Discord.Links(ctx, act.UserID)
	if err != nil {
		log.Printf("⚠️ activity %d: failed to load discord links: %v", act.ID, err)
		return
	}
	for i := range links {
		link := &links[i]
		if err := w.Discord.EnsureFreshToken(ctx, link); err != nil {
			log.Printf("⚠️ token refresh for %s failed: %v", link.Snowflake, err)
			continue
		}
		if err := w.Discord.UpdateRoleConnection(ctx, link, *act.TitleNew); err != nil {
			log.Printf("⚠️ role connection for %s failed: %v", link.Snowflake, err)
		}
	}
}
