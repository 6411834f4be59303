package chat

import (
	"context"
	"log"
	"regexp"
	"strings"

	"tripchat/apperror"
	"tripchat/models"
)

// AccessNotifier is told when role or channel state changed in a way that can
// invalidate live subscriptions. The fan-out hub implements it; registries
// call it only after the triggering transaction has committed.
type AccessNotifier interface {
	ChannelChanged(channelID uint)
	UserChanged(userID uint)
}

// ChannelRegistry owns channel lifecycle and is the single authority for
// access decisions. Access is re-derived from current role state on every
// call; nothing caches an ACL beyond one operation.
type ChannelRegistry struct {
	store    Store
	admins   *AdminRegistry
	notifier AccessNotifier
	logger   *log.Logger
}

func NewChannelRegistry(store Store, admins *AdminRegistry, logger *log.Logger) *ChannelRegistry {
	return &ChannelRegistry{store: store, admins: admins, logger: logger}
}

// SetNotifier wires the fan-out hub in after construction (the hub needs the
// registry as its access checker, so one of the two references is late-bound).
func (cr *ChannelRegistry) SetNotifier(n AccessNotifier) { cr.notifier = n }

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// CreateChannelInput carries the caller-supplied channel fields.
type CreateChannelInput struct {
	Name            string `json:"name" validate:"required,min=1,max=80"`
	Description     string `json:"description" validate:"max=500"`
	Kind            string `json:"kind" validate:"omitempty,oneof=role main"`
	RequiredRoleIDs []uint `json:"required_role_ids"`
}

// CreateChannel creates a role-gated channel (or the trip-wide main channel
// when Kind is "main"). Role-gated channels must name at least one role, and
// every named role must belong to the trip.
func (cr *ChannelRegistry) CreateChannel(ctx context.Context, tripID uint, in CreateChannelInput, actor uint) (*models.Channel, error) {
	ok, err := cr.admins.HasPermission(ctx, tripID, actor, models.PermManageChannels)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Unauthorized("manage-channels permission required")
	}

	kind := in.Kind
	if kind == "" {
		kind = models.ChannelKindRole
	}
	if kind == models.ChannelKindRole && len(in.RequiredRoleIDs) == 0 {
		return nil, apperror.InvalidRoleSet("a role-gated channel needs at least one required role")
	}
	if kind == models.ChannelKindMain && len(in.RequiredRoleIDs) > 0 {
		return nil, apperror.InvalidRoleSet("the main channel cannot be role-gated")
	}

	slug := slugify(in.Name)
	if slug == "" {
		return nil, apperror.InvalidRoleSet("channel name produces an empty slug")
	}

	ch := &models.Channel{
		TripID:      tripID,
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		Kind:        kind,
		IsPrivate:   kind == models.ChannelKindRole,
		CreatedBy:   actor,
	}

	err = cr.store.Tx(ctx, func(tx Store) error {
		for _, roleID := range in.RequiredRoleIDs {
			role, err := tx.GetRole(ctx, roleID)
			if err != nil {
				return err
			}
			if role == nil || role.TripID != tripID {
				return apperror.InvalidRoleSet("required role does not belong to this trip")
			}
		}
		existing, err := tx.FindChannelBySlug(ctx, tripID, slug)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.DuplicateSlug("a channel with this slug already exists in the trip")
		}
		return tx.CreateChannel(ctx, ch, in.RequiredRoleIDs)
	})
	if err != nil {
		return nil, err
	}
	cr.logger.Printf("channel %q (%d) created on trip %d by user %d", ch.Slug, ch.ID, tripID, actor)
	return ch, nil
}

// UpdateChannelInput carries optional channel mutations. Nil fields are left
// untouched; the slug is fixed at creation so links stay stable.
type UpdateChannelInput struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=80"`
	Description     *string `json:"description" validate:"omitempty,max=500"`
	RequiredRoleIDs *[]uint `json:"required_role_ids"`
}

func (cr *ChannelRegistry) UpdateChannel(ctx context.Context, channelID uint, in UpdateChannelInput, actor uint) (*models.Channel, error) {
	var out *models.Channel
	err := cr.store.Tx(ctx, func(tx Store) error {
		ch, err := tx.GetChannel(ctx, channelID)
		if err != nil {
			return err
		}
		if ch == nil {
			return apperror.NotFound("channel not found")
		}
		ok, err := cr.admins.hasPermission(ctx, tx, ch.TripID, actor, models.PermManageChannels)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Unauthorized("manage-channels permission required")
		}
		if ch.IsArchived {
			return apperror.ChannelArchived("archived channels cannot be edited")
		}
		if in.Name != nil {
			ch.Name = *in.Name
		}
		if in.Description != nil {
			ch.Description = *in.Description
		}
		if in.RequiredRoleIDs != nil {
			if ch.Kind != models.ChannelKindRole {
				return apperror.InvalidRoleSet("the main channel cannot be role-gated")
			}
			roleIDs := *in.RequiredRoleIDs
			if len(roleIDs) == 0 {
				return apperror.InvalidRoleSet("a role-gated channel needs at least one required role")
			}
			for _, roleID := range roleIDs {
				role, err := tx.GetRole(ctx, roleID)
				if err != nil {
					return err
				}
				if role == nil || role.TripID != ch.TripID {
					return apperror.InvalidRoleSet("required role does not belong to this trip")
				}
			}
			if err := tx.SetChannelRoles(ctx, channelID, roleIDs); err != nil {
				return err
			}
		}
		if err := tx.UpdateChannel(ctx, ch); err != nil {
			return err
		}
		out = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cr.notifier != nil {
		cr.notifier.ChannelChanged(channelID)
	}
	return out, nil
}

// GetChannel returns the channel or NotFound.
func (cr *ChannelRegistry) GetChannel(ctx context.Context, channelID uint) (*models.Channel, error) {
	ch, err := cr.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, apperror.NotFound("channel not found")
	}
	return ch, nil
}

// AccessibleChannels returns every non-archived channel the user can open
// right now, derived from their current role assignment. A role revocation
// changes the result on the very next call.
func (cr *ChannelRegistry) AccessibleChannels(ctx context.Context, tripID, userID uint) ([]models.Channel, error) {
	channels, err := cr.store.ListChannels(ctx, tripID)
	if err != nil {
		return nil, err
	}
	assignment, err := cr.store.GetUserAssignment(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	var out []models.Channel
	for _, ch := range channels {
		if ch.IsArchived {
			continue
		}
		if ch.Kind == models.ChannelKindMain {
			out = append(out, ch)
			continue
		}
		if assignment == nil {
			continue
		}
		roleIDs, err := cr.store.ChannelRoleIDs(ctx, ch.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range roleIDs {
			if id == assignment.RoleID {
				out = append(out, ch)
				break
			}
		}
	}
	return out, nil
}

// CanAccess is the guard consulted before every channel read, send, or
// subscription. Archived channels stay readable to the users frozen in the
// archive-time snapshot; everything else is derived from live role state.
func (cr *ChannelRegistry) CanAccess(ctx context.Context, channelID, userID uint) (bool, error) {
	return cr.canAccess(ctx, cr.store, channelID, userID)
}

// canAccess runs against the given store view so callers inside a transaction
// share the mutation's snapshot of role state.
func (cr *ChannelRegistry) canAccess(ctx context.Context, s Store, channelID, userID uint) (bool, error) {
	ch, err := s.GetChannel(ctx, channelID)
	if err != nil {
		return false, err
	}
	if ch == nil {
		return false, apperror.NotFound("channel not found")
	}
	return cr.canAccessChannel(ctx, s, ch, userID)
}

func (cr *ChannelRegistry) canAccessChannel(ctx context.Context, s Store, ch *models.Channel, userID uint) (bool, error) {
	if ch.IsArchived {
		if ch.Kind == models.ChannelKindMain {
			return true, nil
		}
		return s.InAccessSnapshot(ctx, ch.ID, userID)
	}
	if ch.Kind == models.ChannelKindMain {
		return true, nil
	}
	assignment, err := s.GetUserAssignment(ctx, ch.TripID, userID)
	if err != nil {
		return false, err
	}
	if assignment == nil {
		return false, nil
	}
	roleIDs, err := s.ChannelRoleIDs(ctx, ch.ID)
	if err != nil {
		return false, err
	}
	for _, id := range roleIDs {
		if id == assignment.RoleID {
			return true, nil
		}
	}
	return false, nil
}

// ArchiveChannel archives by explicit admin action. Archival is one-way and
// idempotent; the current accessor set is snapshotted so history stays
// readable to exactly the people who could see it.
func (cr *ChannelRegistry) ArchiveChannel(ctx context.Context, channelID uint, actor uint) error {
	var tripID uint
	err := cr.store.Tx(ctx, func(tx Store) error {
		ch, err := tx.GetChannel(ctx, channelID)
		if err != nil {
			return err
		}
		if ch == nil {
			return apperror.NotFound("channel not found")
		}
		tripID = ch.TripID
		ok, err := cr.admins.hasPermission(ctx, tx, ch.TripID, actor, models.PermManageChannels)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Unauthorized("manage-channels permission required")
		}
		if ch.IsArchived {
			return nil
		}
		return archiveWithSnapshot(ctx, tx, ch)
	})
	if err != nil {
		return err
	}
	cr.logger.Printf("channel %d on trip %d archived by user %d", channelID, tripID, actor)
	if cr.notifier != nil {
		cr.notifier.ChannelChanged(channelID)
	}
	return nil
}

// archiveWithSnapshot freezes the current accessor set and flips the channel
// to archived. Shared with the role-deletion cascade, which runs it inside
// the deletion's own transaction and without a permission check (the cascade
// is system-triggered by an already-authorized operation).
func archiveWithSnapshot(ctx context.Context, tx Store, ch *models.Channel) error {
	roleIDs, err := tx.ChannelRoleIDs(ctx, ch.ID)
	if err != nil {
		return err
	}
	seen := make(map[uint]struct{})
	var userIDs []uint
	for _, roleID := range roleIDs {
		assignments, err := tx.ListAssignmentsByRole(ctx, roleID)
		if err != nil {
			return err
		}
		for _, a := range assignments {
			if _, ok := seen[a.UserID]; ok {
				continue
			}
			seen[a.UserID] = struct{}{}
			userIDs = append(userIDs, a.UserID)
		}
	}
	if len(userIDs) > 0 {
		if err := tx.AddAccessSnapshot(ctx, ch.ID, userIDs); err != nil {
			return err
		}
	}
	return tx.ArchiveChannel(ctx, ch.ID)
}

// ListChannels returns every channel of the trip, archived included, for
// admin screens. Regular clients should use AccessibleChannels.
func (cr *ChannelRegistry) ListChannels(ctx context.Context, tripID uint) ([]models.Channel, error) {
	return cr.store.ListChannels(ctx, tripID)
}

// RequiredRoleIDs exposes a channel's gating role set.
func (cr *ChannelRegistry) RequiredRoleIDs(ctx context.Context, channelID uint) ([]uint, error) {
	return cr.store.ChannelRoleIDs(ctx, channelID)
}
