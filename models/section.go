package models

// Section is one (patch, layout, category, map) combination players submit
// runs on. The catalogue is seeded at startup and read-only afterwards.
type Section struct {
	ID       int32  `json:"id" gorm:"primaryKey"`
	Patch    string `json:"patch" gorm:"not null;uniqueIndex:idx_section_tuple,priority:1;size:8"`
	Layout   string `json:"layout" gorm:"not null;uniqueIndex:idx_section_tuple,priority:2;size:1"`
	Category string `json:"category" gorm:"not null;uniqueIndex:idx_section_tuple,priority:3;size:16"`
	Map      string `json:"map" gorm:"not null;uniqueIndex:idx_section_tuple,priority:4;size:32"`
	// Code is the 4-char short form: layout digit, category initial and a
	// two character map identifier, e.g. "1sAL".
	Code string `json:"code" gorm:"not null;size:4"`
}

// CurrentPatch is the patch new submissions are resolved against.
const CurrentPatch = "2.13"

// CurrentPatchFirstSectionID marks the start of the current-patch id range.
// Runs may only be deleted by their owner inside this range.
const CurrentPatchFirstSectionID int32 = 1093

// Categories of the game mode. The category initial is the second
// character of a section code.
const (
	CategoryStandard  = "Standard"
	CategoryGravspeed = "Gravspeed"
)
