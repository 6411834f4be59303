package models

import "gorm.io/gorm"

// Role is a named role within a trip, e.g. "Crew" or "Security".
// Names are unique per trip, compared case-insensitively; the backing index
// is functional, on (trip_id, LOWER(name)), and lives in migrateDB because
// struct tags cannot express it.
type Role struct {
	gorm.Model
	TripID      uint   `gorm:"not null;index" json:"trip_id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	CreatedBy   uint   `gorm:"not null" json:"created_by"`

	// Relations
	Trip Trip `json:"-"`
}

// RoleAssignment binds a user to their primary role in a trip. The unique
// index on (trip_id, user_id) is the single-primary-role invariant: a member
// holds zero or one role at a time.
type RoleAssignment struct {
	gorm.Model
	TripID     uint `gorm:"not null;index:idx_assignments_trip_user,unique" json:"trip_id"`
	UserID     uint `gorm:"not null;index:idx_assignments_trip_user,unique" json:"user_id"`
	RoleID     uint `gorm:"not null;index" json:"role_id"`
	AssignedBy uint `gorm:"not null" json:"assigned_by"`

	// Relations
	Role Role `json:"-"`
}
