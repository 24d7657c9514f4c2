package models

import (
	"time"
)

// ActivityEvent classifies an activity row by which old/new pair is set.
type ActivityEvent string

const (
	EventJoin        ActivityEvent = "join"
	EventRankChange  ActivityEvent = "rank"
	EventTitleChange ActivityEvent = "title"
)

// Activity is an append-only record of a user's first appearance in a
// ranking slice, a rank change, or a title change.
//
// Exactly one classification applies per row: a join has no old/new pair, a
// rank change populates RankOld/RankNew, a title change populates
// TitleOld/TitleNew. A recomputation that moves both rank and title appends
// two rows.
type Activity struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"not null;index"`
	RankID    *int64    `json:"rank_id,omitempty" gorm:"index"`
	TitleOld  *Title    `json:"title_old,omitempty"`
	TitleNew  *Title    `json:"title_new,omitempty"`
	RankOld   *int32    `json:"rank_old,omitempty"`
	RankNew   *int32    `json:"rank_new,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	User User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Rank *RankEntry `json:"rank,omitempty" gorm:"foreignKey:RankID"`
}

// Event returns the row's classification.
func (a *Activity) Event() ActivityEvent {
	switch {
	case a.TitleOld != nil && a.TitleNew != nil:
		return EventTitleChange
	case a.RankOld != nil && a.RankNew != nil:
		return EventRankChange
	default:
		return EventJoin
	}
}
