// Package gormstore is the Postgres implementation of chat.Store. Per-channel
// message ordering comes from an atomic counter bump on the channel row, so
// two concurrent appends can never share a sequence number even across
// processes; everything that must be atomic with an access check runs inside
// a database transaction via Tx.
package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripchat/apperror"
	"tripchat/chat"
	"tripchat/models"
)

type Gormstore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Gormstore {
	return &Gormstore{db: db}
}

var _ chat.Store = (*Gormstore)(nil)

func (g *Gormstore) Tx(ctx context.Context, fn func(tx chat.Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gormstore{db: tx})
	})
}

func (g *Gormstore) GetTrip(ctx context.Context, tripID uint) (*models.Trip, error) {
	var trip models.Trip
	if err := g.db.WithContext(ctx).First(&trip, tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("trip not found")
		}
		return nil, err
	}
	return &trip, nil
}

// Roles

// CreateRole inserts the role. The functional unique index on
// (trip_id, LOWER(name)) is the authority on name uniqueness: two concurrent
// creates can both pass the FindRoleByName check, and the loser surfaces
// here as a duplicate-key error.
func (g *Gormstore) CreateRole(ctx context.Context, role *models.Role) error {
	err := g.db.WithContext(ctx).Create(role).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.DuplicateName("a role with this name already exists in the trip")
	}
	return err
}

func (g *Gormstore) GetRole(ctx context.Context, roleID uint) (*models.Role, error) {
	var role models.Role
	if err := g.db.WithContext(ctx).First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (g *Gormstore) FindRoleByName(ctx context.Context, tripID uint, name string) (*models.Role, error) {
	var role models.Role
	err := g.db.WithContext(ctx).
		Where("trip_id = ? AND LOWER(name) = LOWER(?)", tripID, name).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (g *Gormstore) ListRoles(ctx context.Context, tripID uint) ([]models.Role, error) {
	var roles []models.Role
	err := g.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("id").Find(&roles).Error
	return roles, err
}

// DeleteRole removes the row outright. A soft delete would keep the name
// occupying the per-trip unique index and block re-creating the role.
func (g *Gormstore) DeleteRole(ctx context.Context, roleID uint) error {
	return g.db.WithContext(ctx).Unscoped().Delete(&models.Role{}, roleID).Error
}

// Assignments

func (g *Gormstore) CreateAssignment(ctx context.Context, a *models.RoleAssignment) error {
	return g.db.WithContext(ctx).Create(a).Error
}

func (g *Gormstore) GetUserAssignment(ctx context.Context, tripID, userID uint) (*models.RoleAssignment, error) {
	var a models.RoleAssignment
	err := g.db.WithContext(ctx).Where("trip_id = ? AND user_id = ?", tripID, userID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (g *Gormstore) ListAssignments(ctx context.Context, tripID uint) ([]models.RoleAssignment, error) {
	var out []models.RoleAssignment
	err := g.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("id").Find(&out).Error
	return out, err
}

func (g *Gormstore) ListAssignmentsByRole(ctx context.Context, roleID uint) ([]models.RoleAssignment, error) {
	var out []models.RoleAssignment
	err := g.db.WithContext(ctx).Where("role_id = ?", roleID).Order("id").Find(&out).Error
	return out, err
}

func (g *Gormstore) DeleteAssignment(ctx context.Context, tripID, userID, roleID uint) (bool, error) {
	res := g.db.WithContext(ctx).Unscoped().
		Where("trip_id = ? AND user_id = ? AND role_id = ?", tripID, userID, roleID).
		Delete(&models.RoleAssignment{})
	return res.RowsAffected > 0, res.Error
}

func (g *Gormstore) DeleteAssignmentsByRole(ctx context.Context, roleID uint) error {
	return g.db.WithContext(ctx).Unscoped().
		Where("role_id = ?", roleID).
		Delete(&models.RoleAssignment{}).Error
}

// Admin grants

func (g *Gormstore) UpsertAdminGrant(ctx context.Context, grant *models.AdminGrant) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trip_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"manage_roles", "manage_channels", "designate_admins", "granted_by", "updated_at",
		}),
	}).Create(grant).Error
}

func (g *Gormstore) GetAdminGrant(ctx context.Context, tripID, userID uint) (*models.AdminGrant, error) {
	var grant models.AdminGrant
	err := g.db.WithContext(ctx).Where("trip_id = ? AND user_id = ?", tripID, userID).First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

func (g *Gormstore) ListAdminGrants(ctx context.Context, tripID uint) ([]models.AdminGrant, error) {
	var out []models.AdminGrant
	err := g.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("id").Find(&out).Error
	return out, err
}

func (g *Gormstore) DeleteAdminGrant(ctx context.Context, tripID, userID uint) (bool, error) {
	res := g.db.WithContext(ctx).Unscoped().
		Where("trip_id = ? AND user_id = ?", tripID, userID).
		Delete(&models.AdminGrant{})
	return res.RowsAffected > 0, res.Error
}

// Channels

func (g *Gormstore) CreateChannel(ctx context.Context, ch *models.Channel, roleIDs []uint) error {
	if err := g.db.WithContext(ctx).Create(ch).Error; err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		row := models.ChannelRequiredRole{ChannelID: ch.ID, RoleID: roleID}
		if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (g *Gormstore) GetChannel(ctx context.Context, channelID uint) (*models.Channel, error) {
	var ch models.Channel
	if err := g.db.WithContext(ctx).First(&ch, channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ch, nil
}

func (g *Gormstore) FindChannelBySlug(ctx context.Context, tripID uint, slug string) (*models.Channel, error) {
	var ch models.Channel
	err := g.db.WithContext(ctx).Where("trip_id = ? AND slug = ?", tripID, slug).First(&ch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ch, nil
}

func (g *Gormstore) ListChannels(ctx context.Context, tripID uint) ([]models.Channel, error) {
	var out []models.Channel
	err := g.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("id").Find(&out).Error
	return out, err
}

func (g *Gormstore) UpdateChannel(ctx context.Context, ch *models.Channel) error {
	return g.db.WithContext(ctx).Model(ch).
		Select("name", "description", "updated_at").
		Updates(map[string]interface{}{
			"name":        ch.Name,
			"description": ch.Description,
			"updated_at":  time.Now(),
		}).Error
}

func (g *Gormstore) SetChannelRoles(ctx context.Context, channelID uint, roleIDs []uint) error {
	if err := g.db.WithContext(ctx).Unscoped().
		Where("channel_id = ?", channelID).
		Delete(&models.ChannelRequiredRole{}).Error; err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		row := models.ChannelRequiredRole{ChannelID: channelID, RoleID: roleID}
		if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (g *Gormstore) ChannelRoleIDs(ctx context.Context, channelID uint) ([]uint, error) {
	var out []uint
	err := g.db.WithContext(ctx).Model(&models.ChannelRequiredRole{}).
		Where("channel_id = ?", channelID).
		Order("role_id").
		Pluck("role_id", &out).Error
	return out, err
}

func (g *Gormstore) ChannelsRequiringRole(ctx context.Context, roleID uint) ([]uint, error) {
	var out []uint
	err := g.db.WithContext(ctx).Model(&models.ChannelRequiredRole{}).
		Where("role_id = ?", roleID).
		Order("channel_id").
		Pluck("channel_id", &out).Error
	return out, err
}

func (g *Gormstore) ArchiveChannel(ctx context.Context, channelID uint) error {
	return g.db.WithContext(ctx).Model(&models.Channel{}).
		Where("id = ?", channelID).
		Update("is_archived", true).Error
}

func (g *Gormstore) AddAccessSnapshot(ctx context.Context, channelID uint, userIDs []uint) error {
	for _, userID := range userIDs {
		row := models.ChannelAccessSnapshot{ChannelID: channelID, UserID: userID}
		err := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *Gormstore) InAccessSnapshot(ctx context.Context, channelID, userID uint) (bool, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&models.ChannelAccessSnapshot{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Count(&n).Error
	return n > 0, err
}

// Messages

// AppendMessage bumps the channel counter and takes the returned value as
// the message's sequence number. The UPDATE serializes concurrent appends on
// the row lock; callers run this inside Tx together with the access check.
func (g *Gormstore) AppendMessage(ctx context.Context, msg *models.Message) error {
	var seq int64
	err := g.db.WithContext(ctx).
		Raw("UPDATE channels SET last_seq = last_seq + 1 WHERE id = ? RETURNING last_seq", msg.ChannelID).
		Scan(&seq).Error
	if err != nil {
		return err
	}
	if seq == 0 {
		return apperror.NotFound("channel not found")
	}
	msg.Seq = seq
	return g.db.WithContext(ctx).Create(msg).Error
}

func (g *Gormstore) GetMessage(ctx context.Context, messageID uint) (*models.Message, error) {
	var msg models.Message
	if err := g.db.WithContext(ctx).Unscoped().First(&msg, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (g *Gormstore) UpdateMessageContent(ctx context.Context, messageID uint, content string, editedAt time.Time) error {
	return g.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"content":    content,
			"edited_at":  editedAt,
			"updated_at": editedAt,
		}).Error
}

func (g *Gormstore) SoftDeleteMessage(ctx context.Context, messageID uint) error {
	return g.db.WithContext(ctx).Delete(&models.Message{}, messageID).Error
}

// History reads go through Unscoped: soft-deleted messages keep their place
// in the log and are redacted by the service layer.
func (g *Gormstore) ListMessagesBefore(ctx context.Context, channelID uint, beforeSeq int64, limit int) ([]models.Message, error) {
	q := g.db.WithContext(ctx).Unscoped().Where("channel_id = ?", channelID)
	if beforeSeq > 0 {
		q = q.Where("seq < ?", beforeSeq)
	}
	var out []models.Message
	err := q.Order("seq DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (g *Gormstore) ListMessagesAfter(ctx context.Context, channelID uint, afterSeq int64, limit int) ([]models.Message, error) {
	var out []models.Message
	err := g.db.WithContext(ctx).Unscoped().
		Where("channel_id = ? AND seq > ?", channelID, afterSeq).
		Order("seq ASC").Limit(limit).Find(&out).Error
	return out, err
}

func (g *Gormstore) CountUnread(ctx context.Context, channelID uint, afterSeq int64, excludeSender uint) (int64, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&models.Message{}).
		Where("channel_id = ? AND seq > ? AND sender_id <> ?", channelID, afterSeq, excludeSender).
		Count(&n).Error
	return n, err
}

func (g *Gormstore) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := g.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&models.Message{})
	return res.RowsAffected, res.Error
}

// Read markers

func (g *Gormstore) GetReadMarker(ctx context.Context, channelID, userID uint) (*models.ChannelReadMarker, error) {
	var marker models.ChannelReadMarker
	err := g.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		First(&marker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &marker, nil
}

// AdvanceReadMarker is monotonic: the conditional update ignores stale calls
// instead of rewinding the watermark.
func (g *Gormstore) AdvanceReadMarker(ctx context.Context, channelID, userID uint, seq int64) error {
	marker := models.ChannelReadMarker{ChannelID: channelID, UserID: userID, LastReadSeq: seq}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "channel_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_read_seq": gorm.Expr("GREATEST(channel_read_markers.last_read_seq, EXCLUDED.last_read_seq)"),
			"updated_at":    time.Now(),
		}),
	}).Create(&marker).Error
}
