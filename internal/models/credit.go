package models

import (
	"gorm.io/gorm"
)

// BehaviorCredit is the running credit count one recipient has accumulated
// for one behavior shortname.
type BehaviorCredit struct {
	gorm.Model
	Email    string `gorm:"uniqueIndex:idx_email_behavior" json:"email"`
	Behavior string `gorm:"uniqueIndex:idx_email_behavior" json:"behavior"`
	Count    int    `json:"count"`
}
