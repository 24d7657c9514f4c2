package models

import (
	"time"
)

// Run is one timed attempt by one user on one section.
//
// IsPb and IsWr are derived flags maintained by the run store: within a
// (section, user) partition ordered by (time ASC, created_at ASC, id ASC)
// exactly the first run is the PB, and within a section partition the first
// run is the WR.
type Run struct {
	ID        int32     `json:"id" gorm:"primaryKey"`
	SectionID int32     `json:"section_id" gorm:"not null;index"`
	UserID    int64     `json:"user_id" gorm:"not null;index"`
	Time      float64   `json:"time" gorm:"not null;type:decimal(12,3)"`
	Proof     string    `json:"proof"`
	YtID      *string   `json:"yt_id,omitempty" gorm:"size:11"`
	Verified  bool      `json:"verified" gorm:"not null;default:false"`
	IsPb      bool      `json:"is_pb" gorm:"not null;default:false"`
	IsWr      bool      `json:"is_wr" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Section Section `json:"section,omitempty" gorm:"foreignKey:SectionID"`
	User    User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
