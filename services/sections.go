package services

import (
	"fmt"
	"regexp"
	"strings"

	"surf-leaderboard/models"
	"surf-leaderboard/utils"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// codePattern is the 4-char section code grammar: layout digit, category
// initial, two character map identifier (case-insensitive).
var codePattern = regexp.MustCompile(`^[1-5][sSgG][A-Za-z0-9]{2}$`)

var layouts = []string{"1", "2", "3", "4", "5"}
var categories = []string{models.CategoryStandard, models.CategoryGravspeed}

type mapDef struct {
	Name string
	Code string // two character identifier, stored upper-case
}

type patchBlock struct {
	Patch   string
	FirstID int32 // section ids of a patch occupy a fixed, reserved range
	Maps    []mapDef
}

// catalogue is the static section seed. Ids are assigned deterministically
// inside each patch's reserved range; the current patch starts at 1093.
var catalogue = []patchBlock{
	{Patch: "1.00", FirstID: 1, Maps: []mapDef{
		{"Alpine", "AL"}, {"Boreal", "BO"}, {"Cavern", "CV"}, {"Dunes", "DU"},
		{"Estuary", "ES"}, {"Foothills", "FH"}, {"Glacier", "GL"}, {"Harbor", "HB"},
	}},
	{Patch: "1.41", FirstID: 241, Maps: []mapDef{
		{"Alpine", "AL"}, {"Boreal", "BO"}, {"Cavern", "CV"}, {"Dunes", "DU"},
		{"Estuary", "ES"}, {"Foothills", "FH"}, {"Glacier", "GL"}, {"Harbor", "HB"},
		{"Inlet", "IN"}, {"Junction", "JU"},
	}},
	{Patch: "1.50", FirstID: 491, Maps: []mapDef{
		{"Alpine", "AL"}, {"Boreal", "BO"}, {"Cavern", "CV"}, {"Dunes", "DU"},
		{"Estuary", "ES"}, {"Foothills", "FH"}, {"Glacier", "GL"}, {"Harbor", "HB"},
		{"Inlet", "IN"}, {"Junction", "JU"}, {"Karst", "KA"},
	}},
	{Patch: "2.00", FirstID: 691, Maps: []mapDef{
		{"Alpine", "AL"}, {"Boreal", "BO"}, {"Cavern", "CV"}, {"Dunes", "DU"},
		{"Estuary", "ES"}, {"Foothills", "FH"}, {"Glacier", "GL"}, {"Harbor", "HB"},
		{"Inlet", "IN"}, {"Junction", "JU"}, {"Karst", "KA"}, {"Lagoon", "LG"},
		{"Mesa", "ME"}, {"Nimbus", "NI"},
	}},
	{Patch: models.CurrentPatch, FirstID: models.CurrentPatchFirstSectionID, Maps: []mapDef{
		{"Alpine", "AL"}, {"Boreal", "BO"}, {"Cavern", "CV"}, {"Dunes", "DU"},
		{"Estuary", "ES"}, {"Foothills", "FH"}, {"Glacier", "GL"}, {"Harbor", "HB"},
		{"Inlet", "IN"}, {"Junction", "JU"}, {"Karst", "KA"}, {"Lagoon", "LG"},
		{"Mesa", "ME"}, {"Nimbus", "NI"}, {"Oasis", "OA"}, {"Pinnacle", "PN"},
	}},
}

// SectionService is the read-only registry of sections.
type SectionService struct {
	DB *gorm.DB
}

func NewSectionService(db *gorm.DB) *SectionService {
	return &SectionService{DB: db}
}

// Seed upserts the static catalogue. Safe to run on every startup.
func (s *SectionService) Seed() error {
	for _, block := range catalogue {
		id := block.FirstID
		var sections []models.Section
		for _, layout := range layouts {
			for _, category := range categories {
				for _, m := range block.Maps {
					sections = append(sections, models.Section{
						ID:       id,
						Patch:    block.Patch,
						Layout:   layout,
						Category: category,
						Map:      m.Name,
						Code:     canonicalCode(layout, category, m.Code),
					})
					id++
				}
			}
		}
		if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&sections).Error; err != nil {
			return fmt.Errorf("seed sections for patch %s: %w", block.Patch, err)
		}
	}
	return nil
}

func canonicalCode(layout, category, mapCode string) string {
	initial := "s"
	if category == models.CategoryGravspeed {
		initial = "g"
	}
	return layout + initial + strings.ToUpper(mapCode)
}

// Lookup resolves a (patch, layout, category, map) tuple.
func (s *SectionService) Lookup(patch, layout, category, mapName string) (*models.Section, error) {
	var section models.Section
	err := s.DB.
		Where("patch = ? AND layout = ? AND category = ? AND map = ?", patch, layout, category, mapName).
		First(&section).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.NewError(utils.KindInvalidSection)
	}
	if err != nil {
		return nil, utils.ServerError("section lookup failed")
	}
	return &section, nil
}

// LookupByCode resolves a short code against the current patch. Only the
// last two characters identify the map and match case-insensitively.
func (s *SectionService) LookupByCode(code string) (*models.Section, error) {
	if !codePattern.MatchString(code) {
		return nil, utils.NewError(utils.KindInvalidSection)
	}
	layout := code[:1]
	category := models.CategoryStandard
	if code[1] == 'g' || code[1] == 'G' {
		category = models.CategoryGravspeed
	}

	var section models.Section
	err := s.DB.
		Where("patch = ? AND code = ?", models.CurrentPatch, canonicalCode(layout, category, code[2:])).
		First(&section).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.NewError(utils.KindInvalidSection)
	}
	if err != nil {
		return nil, utils.ServerError("section lookup failed")
	}
	return &section, nil
}

// CurrentPatchSections returns every section of the current patch.
func (s *SectionService) CurrentPatchSections() ([]models.Section, error) {
	var sections []models.Section
	if err := s.DB.Where("patch = ?", models.CurrentPatch).Order("id ASC").Find(&sections).Error; err != nil {
		return nil, utils.ServerError("failed to load sections")
	}
	return sections, nil
}

// CurrentMaps lists the distinct current-patch map names in catalogue order.
func (s *SectionService) CurrentMaps() ([]string, error) {
	var names []string
	err := s.DB.Model(&models.Section{}).
		Where("patch = ?", models.CurrentPatch).
		Group("map").
		Order("MIN(id) ASC").
		Pluck("map", &names).Error
	if err != nil {
		return nil, utils.ServerError("failed to load maps")
	}
	return names, nil
}

// MapThumbnail returns the immutable CDN path of a map's thumbnail.
func MapThumbnail(mapName string) string {
	return "/cdn/maps/" + slug.Make(mapName) + ".jpg"
}
