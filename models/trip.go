package models

import "gorm.io/gorm"

// Trip is the collaboration scope that owns roles, channels, and admins.
// Membership itself lives with the external roster service; we only need the
// creator here for the implicit-admin bootstrap rule.
type Trip struct {
	gorm.Model
	Name      string `gorm:"not null" json:"name"`
	CreatorID uint   `gorm:"not null;index" json:"creator_id"`
}
