package models

import (
	"time"
)

// Title is the categorical award derived from a user's rating crossing
// patch-specific thresholds. TopOne is reserved for rank 1.
type Title int

const (
	TitleNone Title = iota
	TitleSurfer
	TitleSuperSurfer
	TitleEpicSurfer
	TitleLegendarySurfer
	TitleMythicSurfer
	TitleTopOne
)

var titleNames = [...]string{
	"None",
	"Surfer",
	"SuperSurfer",
	"EpicSurfer",
	"LegendarySurfer",
	"MythicSurfer",
	"TopOne",
}

func (t Title) String() string {
	if t < TitleNone || t > TitleTopOne {
		return "None"
	}
	return titleNames[t]
}

// RankEntry is one user's position inside a ranking slice. A slice is a
// (patch, layout?, category?) triple; nil layout/category mean the slice
// aggregates over that dimension.
type RankEntry struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	Patch      string    `json:"patch" gorm:"not null;index:idx_rank_slice,priority:1;size:8"`
	Layout     *string   `json:"layout,omitempty" gorm:"index:idx_rank_slice,priority:2;size:1"`
	Category   *string   `json:"category,omitempty" gorm:"index:idx_rank_slice,priority:3;size:16"`
	UserID     int64     `json:"user_id" gorm:"not null;index"`
	Title      Title     `json:"title" gorm:"not null;default:0"`
	Rank       int32     `json:"rank" gorm:"not null"`
	Rating     float64   `json:"rating" gorm:"not null"`
	Percentage float64   `json:"percentage" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
