package models

import (
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// BehaviorRequirement is one credit threshold on a standard badge: the badge
// is auto-awarded once the recipient has at least Count credits for every
// listed behavior shortname.
type BehaviorRequirement struct {
	Shortname string `json:"shortname"`
	Count     int    `json:"count"`
}

type Badge struct {
	gorm.Model
	Shortname   string `gorm:"uniqueIndex" json:"shortname"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"` // URL to image
	Criteria    string `json:"criteria"`

	Behaviors []BehaviorRequirement `gorm:"serializer:json" json:"behaviors"`

	// Categories this badge contributes CategoryWeight credit to. Mutually
	// exclusive with CategoryAward: a badge either feeds categories or is the
	// meta-badge awarded when a category's total weight reaches
	// CategoryRequirement.
	Categories          []string `gorm:"serializer:json" json:"categories"`
	CategoryWeight      int      `json:"categoryWeight"`
	CategoryAward       string   `gorm:"index" json:"categoryAward"`
	CategoryRequirement int      `json:"categoryRequirement"`

	ClaimCodes []ClaimCode `gorm:"foreignKey:BadgeID" json:"claimCodes,omitempty"`
}

type BadgeKind int

const (
	KindStandard BadgeKind = iota
	KindCategoryMember
	KindCategoryAward
)

// Kind reports which variant the badge is. The BeforeSave normalization
// guarantees the variants are mutually exclusive for persisted rows.
func (b *Badge) Kind() BadgeKind {
	switch {
	case b.CategoryAward != "":
		return KindCategoryAward
	case len(b.Categories) > 0:
		return KindCategoryMember
	default:
		return KindStandard
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a shortname from a display name.
func Slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// BeforeSave derives the shortname when absent and enforces the
// category-member / category-award exclusivity: a meta-badge carries no
// member fields and a member badge carries no award fields.
func (b *Badge) BeforeSave(tx *gorm.DB) error {
	if b.Shortname == "" {
		b.Shortname = Slugify(b.Name)
	}
	if b.CategoryAward != "" {
		b.Categories = nil
		b.CategoryWeight = 0
	} else {
		b.CategoryRequirement = 0
	}
	return nil
}
