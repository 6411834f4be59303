package models

import "gorm.io/gorm"

const (
	// ChannelKindRole gates access by the member's current role.
	ChannelKindRole = "role"
	// ChannelKindMain is the trip-wide unscoped channel, open to every
	// trip member regardless of role.
	ChannelKindMain = "main"
)

// Channel is a communication channel within a trip. Role-gated channels
// derive their member set dynamically from current role assignments; there
// is no stored membership list. LastSeq is the per-channel message sequence
// counter, advanced atomically on every append.
type Channel struct {
	gorm.Model
	TripID      uint   `gorm:"not null;index:idx_channels_trip_slug,unique" json:"trip_id"`
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"not null;index:idx_channels_trip_slug,unique" json:"slug"`
	Description string `json:"description"`
	Kind        string `gorm:"not null;default:'role'" json:"kind"`
	IsPrivate   bool   `gorm:"default:true" json:"is_private"`
	IsArchived  bool   `gorm:"default:false;index" json:"is_archived"`
	LastSeq     int64  `gorm:"not null;default:0" json:"-"`
	CreatedBy   uint   `gorm:"not null" json:"created_by"`

	// Relations
	Trip Trip `json:"-"`
}

// ChannelRequiredRole joins a channel to one of its required roles.
type ChannelRequiredRole struct {
	gorm.Model
	ChannelID uint `gorm:"not null;index:idx_channel_roles,unique" json:"channel_id"`
	RoleID    uint `gorm:"not null;index:idx_channel_roles,unique" json:"role_id"`
}

// ChannelAccessSnapshot freezes who could read a channel at the moment it
// was archived. Archived channels stay readable to exactly these users even
// after the roles that once gated them are gone.
type ChannelAccessSnapshot struct {
	gorm.Model
	ChannelID uint `gorm:"not null;index:idx_channel_snapshots,unique" json:"channel_id"`
	UserID    uint `gorm:"not null;index:idx_channel_snapshots,unique" json:"user_id"`
}
