package models

import (
	"time"
)

// Permission is a bitmask over the capabilities a user holds.
type Permission int64

const (
	PermView Permission = 1 << iota
	PermSubmit
	PermTrusted
	PermDelete
	PermVerify
	PermManageRuns
	PermManageUsers
	PermAdministrator
)

// DefaultPermissions is what a freshly registered user gets.
const DefaultPermissions = PermView | PermSubmit

// User is a registered leaderboard account.
type User struct {
	ID           int64      `json:"id" gorm:"primaryKey"`
	Name         string     `json:"name" gorm:"uniqueIndex;not null;size:32"`
	Bio          *string    `json:"bio,omitempty" gorm:"size:512"`
	Pfp          *string    `json:"pfp,omitempty"` // token of the avatar file under /cdn/users
	PasswordHash string     `json:"-" gorm:"not null"`
	Permissions  Permission `json:"permissions" gorm:"not null;default:3"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`

	Ranks []RankEntry `json:"ranks,omitempty" gorm:"foreignKey:UserID"`
}

// Has reports whether the user holds the given permission.
// Administrator implies every other permission.
func (u *User) Has(p Permission) bool {
	if u.Permissions&PermAdministrator != 0 {
		return true
	}
	return u.Permissions&p != 0
}
