package models

import "time"

// ChannelReadMarker tracks per-user read progress in a channel as a high
// watermark. LastReadSeq is monotonic: it only ever advances, so a stale
// markRead call can never resurrect unread counts.
type ChannelReadMarker struct {
	ChannelID   uint      `gorm:"primaryKey" json:"channel_id"`
	UserID      uint      `gorm:"primaryKey" json:"user_id"`
	LastReadSeq int64     `gorm:"not null;default:0" json:"last_read_seq"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
