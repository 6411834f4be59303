package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Message is one entry in a channel's append-only log. Seq is assigned by
// the store from the channel's counter under the channel's append lock, so
// ordering never depends on wall clocks. SenderName is a denormalized
// snapshot taken at send time.
//
// Soft deletion uses the gorm.Model DeletedAt column; reads go through
// Unscoped so deleted messages keep their position and are redacted rather
// than dropped. The retention worker hard-deletes them once the configured
// window has passed.
type Message struct {
	gorm.Model
	ChannelID  uint       `gorm:"not null;index:idx_messages_channel_seq,unique" json:"channel_id"`
	Seq        int64      `gorm:"not null;index:idx_messages_channel_seq,unique" json:"seq"`
	SenderID   uint       `gorm:"not null;index" json:"sender_id"`
	SenderName string     `gorm:"not null" json:"sender_name"`
	Content    string     `gorm:"type:text" json:"content"`
	Type       string     `gorm:"not null;default:'text'" json:"type"`
	EditedAt   *time.Time `json:"edited_at,omitempty"`
}

// IsDeleted reports whether the message has been soft-deleted.
func (m *Message) IsDeleted() bool {
	return m.DeletedAt.Valid
}

// Redacted returns a copy safe to hand to readers: soft-deleted messages
// keep their position but lose their content.
func (m *Message) Redacted() Message {
	out := *m
	if m.IsDeleted() {
		out.Content = ""
		out.SenderName = ""
	}
	return out
}
