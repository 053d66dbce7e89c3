package models

import (
	"gorm.io/gorm"
)

// Issuer is an administrative account that defines badges and manages claim
// codes. Issuers sign in via Discord OAuth.
type Issuer struct {
	gorm.Model
	DiscordID string `gorm:"uniqueIndex"`
	Username  string
	Email     string
	Avatar    string
	Admin     bool
}
