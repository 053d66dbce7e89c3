package models

import (
	"time"

	"gorm.io/gorm"
)

// BadgeInstance is one award of a badge to one recipient. The composite
// unique index makes "at most one instance per (email, badge)" a store-level
// guarantee; the award engine treats the duplicate-key error as the
// already-awarded case.
type BadgeInstance struct {
	gorm.Model
	Email          string `gorm:"uniqueIndex:idx_email_badge" json:"email"`
	BadgeShortname string `gorm:"uniqueIndex:idx_email_badge" json:"badgeShortname"`

	// Assertion is the signed, serialized assertion; Hash is its public
	// lookup key.
	Assertion string    `json:"assertion"`
	Hash      string    `gorm:"uniqueIndex" json:"hash"`
	IssuedOn  time.Time `json:"issuedOn"`
	Seen      bool      `json:"seen"`
}
