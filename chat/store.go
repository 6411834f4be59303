package chat

import (
	"context"
	"time"

	"tripchat/models"
)

// Store is the persistence boundary shared by the live Postgres backend and
// the in-memory demo provider. Registries never talk to a database directly;
// they compose these calls, and anything that must be atomic runs inside Tx.
type Store interface {
	// Tx runs fn against a transactional view of the store. Every access
	// check performed inside fn sees the same snapshot as the mutation it
	// guards, which closes the revoke-between-check-and-act race.
	Tx(ctx context.Context, fn func(tx Store) error) error

	GetTrip(ctx context.Context, tripID uint) (*models.Trip, error)

	// Roles
	CreateRole(ctx context.Context, role *models.Role) error
	GetRole(ctx context.Context, roleID uint) (*models.Role, error)
	FindRoleByName(ctx context.Context, tripID uint, name string) (*models.Role, error)
	ListRoles(ctx context.Context, tripID uint) ([]models.Role, error)
	DeleteRole(ctx context.Context, roleID uint) error

	// Role assignments
	CreateAssignment(ctx context.Context, a *models.RoleAssignment) error
	GetUserAssignment(ctx context.Context, tripID, userID uint) (*models.RoleAssignment, error)
	ListAssignments(ctx context.Context, tripID uint) ([]models.RoleAssignment, error)
	ListAssignmentsByRole(ctx context.Context, roleID uint) ([]models.RoleAssignment, error)
	DeleteAssignment(ctx context.Context, tripID, userID, roleID uint) (bool, error)
	DeleteAssignmentsByRole(ctx context.Context, roleID uint) error

	// Admin grants
	UpsertAdminGrant(ctx context.Context, g *models.AdminGrant) error
	GetAdminGrant(ctx context.Context, tripID, userID uint) (*models.AdminGrant, error)
	ListAdminGrants(ctx context.Context, tripID uint) ([]models.AdminGrant, error)
	DeleteAdminGrant(ctx context.Context, tripID, userID uint) (bool, error)

	// Channels
	CreateChannel(ctx context.Context, ch *models.Channel, roleIDs []uint) error
	GetChannel(ctx context.Context, channelID uint) (*models.Channel, error)
	FindChannelBySlug(ctx context.Context, tripID uint, slug string) (*models.Channel, error)
	ListChannels(ctx context.Context, tripID uint) ([]models.Channel, error)
	UpdateChannel(ctx context.Context, ch *models.Channel) error
	SetChannelRoles(ctx context.Context, channelID uint, roleIDs []uint) error
	ChannelRoleIDs(ctx context.Context, channelID uint) ([]uint, error)
	ChannelsRequiringRole(ctx context.Context, roleID uint) ([]uint, error)
	ArchiveChannel(ctx context.Context, channelID uint) error
	AddAccessSnapshot(ctx context.Context, channelID uint, userIDs []uint) error
	InAccessSnapshot(ctx context.Context, channelID, userID uint) (bool, error)

	// Messages. AppendMessage assigns msg.Seq from the channel counter
	// atomically; two concurrent appends can never receive the same value.
	AppendMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, messageID uint) (*models.Message, error)
	UpdateMessageContent(ctx context.Context, messageID uint, content string, editedAt time.Time) error
	SoftDeleteMessage(ctx context.Context, messageID uint) error
	ListMessagesBefore(ctx context.Context, channelID uint, beforeSeq int64, limit int) ([]models.Message, error)
	ListMessagesAfter(ctx context.Context, channelID uint, afterSeq int64, limit int) ([]models.Message, error)
	CountUnread(ctx context.Context, channelID uint, afterSeq int64, excludeSender uint) (int64, error)
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Read markers
	GetReadMarker(ctx context.Context, channelID, userID uint) (*models.ChannelReadMarker, error)
	AdvanceReadMarker(ctx context.Context, channelID, userID uint, seq int64) error
}
