package memstore

import (
	"context"
	"time"

	"tripchat/apperror"
	"tripchat/models"
)

func chatNotFound(what string) error {
	return apperror.NotFound(what + " not found")
}

// The Memstore methods below take the store lock for a single call and
// delegate to the transactional view.

func (m *Memstore) view(fn func(v *txView) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&txView{s: m.s})
}

func (m *Memstore) GetTrip(ctx context.Context, tripID uint) (out *models.Trip, err error) {
	err = m.view(func(v *txView) error { out, err = v.GetTrip(ctx, tripID); return err })
	return
}

func (m *Memstore) CreateRole(ctx context.Context, role *models.Role) error {
	return m.view(func(v *txView) error { return v.CreateRole(ctx, role) })
}

func (m *Memstore) GetRole(ctx context.Context, roleID uint) (out *models.Role, err error) {
	err = m.view(func(v *txView) error { out, err = v.GetRole(ctx, roleID); return err })
	return
}

func (m *Memstore) FindRoleByName(ctx context.Context, tripID uint, name string) (out *models.Role, err error) {
	err = m.view(func(v *txView) error { out, err = v.FindRoleByName(ctx, tripID, name); return err })
	return
}

func (m *Memstore) ListRoles(ctx context.Context, tripID uint) (out []models.Role, err error) {
	err = m.view(func(v *txView) error { out, err = v.ListRoles(ctx, tripID); return err })
	return
}

func (m *Memstore) DeleteRole(ctx context.Context, roleID uint) error {
	return m.view(func(v *txView) error { return v.DeleteRole(ctx, roleID) })
}

func (m *Memstore) CreateAssignment(ctx context.Context, a *models.RoleAssignment) error {
	return m.view(func(v *txView) error { return v.CreateAssignment(ctx, a) })
}

func (m *Memstore) GetUserAssignment(ctx context.Context, tripID, userID uint) (out *models.RoleAssignment, err error) {
	err = m.view(func(v *txView) error { out, err = v.GetUserAssignment(ctx, tripID, userID); return err })
	return
}

func (m *Memstore) ListAssignments(ctx context.Context, tripID uint) (out []models.RoleAssignment, err error) {
	err = m.view(func(v *txView) error { out, err = v.ListAssignments(ctx, tripID); return err })
	return
}

func (m *Memstore) ListAssignmentsByRole(ctx context.Context, roleID uint) (out []models.RoleAssignment, err error) {
	err = m.view(func(v *txView) error { out, err = v.ListAssignmentsByRole(ctx, roleID); return err })
	return
}

func (m *Memstore) DeleteAssignment(ctx context.Context, tripID, userID, roleID uint) (removed bool, err error) {
	err = m.view(func(v *txView) error { removed, err = v.DeleteAssignment(ctx, tripID, userID, roleID); return err })
	return
}

func (m *Memstore) DeleteAssignmentsByRole(ctx context.Context, roleID uint) error {
	return m.view(func(v *txView) error { return v.DeleteAssignmentsByRole(ctx, roleID) })
}

func (m *Memstore) UpsertAdminGrant(ctx context.Context, g *models.AdminGrant) error {
	return m.view(func(v *txView) error { return v.UpsertAdminGrant(ctx, g) })
}

func (m *Memstore) GetAdminGrant(ctx context.Context, tripID, userID uint) (out *models.AdminGrant, err error) {
	err = m.view(func(v *txView) error { out, err = v.GetAdminGrant(ctx, tripID, userID); return err })
	return
}

func (m *Memstore) ListAdminGrants(ctx context.Context, tripID uint) (out []models.AdminGrant, err error) {
	err = m.view(func(v *txView) error { out, err = v.ListAdminGrants(ctx, tripID); return err })
	return
}

func (m *Memstore) DeleteAdminGrant(ctx context.Context, tripID, userID uint) (removed bool, err error) {
	err = m.view(func(v *txView) error { removed, err = v.DeleteAdminGrant(ctx, tripID, userID); return err })
	return
}

func (m *Memstore) CreateChannel(ctx context.Context, ch *models.Channel, roleIDs []uint) error {
	return m.view(func(v *txView) error { return v.CreateChannel(ctx, ch, roleIDs) })
}

func (m *Memstore) GetChannel(ctx context.Context, channelID uint) (out *models.Channel, err error) {
	err = m.view(func(v *txView) error { out, err = v.GetChannel(ctx, channelID); return err })
	return
}

func (m *Memstore) FindChannelBySlug(ctx context.Context, tripID uint, slug string) (out *models.Channel, err error) {
	err = m.view(func(v *txView) error { out, err = v.FindChannelBySlug(ctx, tripID, slug); return err })
	return
}

func (m *Memstore) ListChannels(ctx context.Context, tripID uint) (out []models.Channel, err error) {
	err = m.view(func(v *txView) error { out, err = v.ListChannels(ctx, tripID); return err })
	return
}

func (m *Memstore) UpdateChannel(ctx context.Context, ch *models.Channel) error {
	return m.view(func(v *txView) error { return v.UpdateChannel(ctx, ch) })
}

func (m *Memstore) SetChannelRoles(ctx context.Context, channelID uint, roleIDs []uint) error {
	return m.view(func(v *txView) error { return v.SetChannelRoles(ctx, channelID, roleIDs) })
}

func (m *Memstore) ChannelRoleIDs(ctx context.Context, channelID uint) (out []uint, err error) {
	err = m.view(func(v *txView) error { out, err = v.ChannelRoleIDs(ctx, channelID); return err })
	return
}

func (m *Memstore) ChannelsRequiringRole(ctx context.Context, roleID uint) (out []uint, err error) {
	err = m.view(func(v *txView) error { out, err = v.ChannelsRequiringRole(ctx, roleID); return err })
	return
}

func (m *Memstore) ArchiveChannel(ctx context.Context, channelID uint) error {
	return m.view(func(v *txView) error { return v.ArchiveChannel(ctx, channelID) })
}

func (m *Memstore) AddAccessSnapshot(ctx context.Context, channelID uint, userIDs []uint) error {
	return m.view(func(v *txView) error { return v.AddAccessSnapshot(ctx, channelID, userIDs) })
}

func (m *Memstore) InAccessSnapshot(ctx context.Context, channelID, userID uint) (ok bool, err error) {
	err = m.view(func(v *txView) error { ok, err = v.InAccessSnapshot(ctx, channelID, userID); return err })
	return
}

func (m *Memstore) AppendMessage(ctx context.Context, msg *models.Message) error {
	return m.view(func(v *txView) error { return v.AppendMessage(ctx, msg) })
}

func (m *Memstore) GetMessage(ctx context.Context, messageID uint) (out *models.Message, err error) {
	err = m.view(func(v *txView) error { out, err = v.GetMessage(ctx, messageID); return err })
	return
}

func (m *Memstore) UpdateMessageContent(ctx context.Context, messageID uint, content string, editedAt time.Time) error {
	return m.view(func(v *txView) error { return v.UpdateMessageContent(ctx, messageID, content, editedAt) })
}

func (m *Memstore) SoftDeleteMessage(ctx context.Context, messageID uint) error {
	return m.view(func(v *txView) error { return v.SoftDeleteMessage(ctx, messageID) })
}

func (m *Memstore) ListMessagesBefore(ctx context.Context, channelID uint, beforeSeq int64, limit int) (out []models.Message, err error) {
	err = m.view(func(v *txView) error { out, err = v.ListMessagesBefore(ctx, channelID, beforeSeq, limit); return err })
	return
}

func (m *Memstore) ListMessagesAfter(ctx context.Context, channelID uint, afterSeq int64, limit int) (out []models.Message, err error) {
	err = m.view(func(v *txView) error { out, err = v.ListMessagesAfter(ctx, channelID, afterSeq, limit); return err })
	return
}

func (m *Memstore) CountUnread(ctx context.Context, channelID uint, afterSeq int64, excludeSender uint) (n int64, err error) {
	err = m.view(func(v *txView) error { n, err = v.CountUnread(ctx, channelID, afterSeq, excludeSender); return err })
	return
}

func (m *Memstore) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (n int64, err error) {
	err = m.view(func(v *txView) error { n, err = v.PurgeDeletedBefore(ctx, cutoff); return err })
	return
}

func (m *Memstore) GetReadMarker(ctx context.Context, channelID, userID uint) (out *models.ChannelReadMarker, err error) {
	err = m.view(func(v *txView) error { out, err = v.GetReadMarker(ctx, channelID, userID); return err })
	return
}

func (m *Memstore) AdvanceReadMarker(ctx context.Context, channelID, userID uint, seq int64) error {
	return m.view(func(v *txView) error { return v.AdvanceReadMarker(ctx, channelID, userID, seq) })
}
