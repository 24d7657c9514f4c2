package models

import (
	"time"
)

// MaxDiscordLinks caps how many chat identities one user may bind.
const MaxDiscordLinks = 5

// DiscordLink is an OAuth-bound Discord identity of a user, holding the
// tokens needed to push role-connection metadata on title changes.
type DiscordLink struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	UserID       int64     `json:"user_id" gorm:"not null;uniqueIndex:idx_link_identity,priority:1"`
	Snowflake    string    `json:"snowflake" gorm:"not null;uniqueIndex:idx_link_identity,priority:2;size:20"`
	Name         string    `json:"name"`
	AccessToken  string    `json:"-" gorm:"not null"`
	RefreshToken string    `json:"-" gorm:"not null"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}
