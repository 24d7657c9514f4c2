package services

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"
)

// Channel names of the database change notifications consumed by the
// notification bridge. Payload is the decimal-ASCII row id.
const (
	ChannelSubmit   = "submit"
	ChannelActivity = "activity"
)

// Notifier emits a change notification after the write that produced it has
// committed.
type Notifier interface {
	Notify(ctx context.Context, channel string, id int64) error
}

// PgNotifier delivers notifications through postgres NOTIFY, which gives
// ordered delivery per channel to every listener connection.
type PgNotifier struct {
	DB *gorm.DB
}

func (n *PgNotifier) Notify(ctx context.Context, channel string, id int64) error {
	payload := fmt.Sprintf("%d", id)
	if err := n.DB.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", channel, payload).Error; err != nil {
		return fmt.Errorf("pg_notify %s: %w", channel, err)
	}
	return nil
}

// LogNotifier is a fallback sink that only logs; used when the bridge runs
// against a database without NOTIFY support.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, channel string, id int64) error {
	log.Printf("[NOTIFY] %s → %d", channel, id)
	return nil
}
