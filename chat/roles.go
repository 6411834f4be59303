package chat

import (
	"context"
	"log"
	"strings"

	"tripchat/apperror"
	"tripchat/models"
)

// RoleRegistry owns role lifecycle and role-to-member assignment. It enforces
// the single-primary-role invariant: a member holds zero or one role per trip.
type RoleRegistry struct {
	store    Store
	admins   *AdminRegistry
	notifier AccessNotifier
	logger   *log.Logger
}

func NewRoleRegistry(store Store, admins *AdminRegistry, logger *log.Logger) *RoleRegistry {
	return &RoleRegistry{store: store, admins: admins, logger: logger}
}

func (rr *RoleRegistry) SetNotifier(n AccessNotifier) { rr.notifier = n }

// CreateRoleInput carries the caller-supplied role fields.
type CreateRoleInput struct {
	Name        string `json:"name" validate:"required,min=1,max=60"`
	Description string `json:"description" validate:"max=500"`
}

// CreateRole creates a role. Names are unique per trip, case-insensitively.
func (rr *RoleRegistry) CreateRole(ctx context.Context, tripID uint, in CreateRoleInput, actor uint) (*models.Role, error) {
	ok, err := rr.admins.HasPermission(ctx, tripID, actor, models.PermManageRoles)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Unauthorized("manage-roles permission required")
	}
	role := &models.Role{
		TripID:      tripID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatedBy:   actor,
	}
	err = rr.store.Tx(ctx, func(tx Store) error {
		existing, err := tx.FindRoleByName(ctx, tripID, role.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.DuplicateName("a role with this name already exists in the trip")
		}
		return tx.CreateRole(ctx, role)
	})
	if err != nil {
		return nil, err
	}
	rr.logger.Printf("role %q (%d) created on trip %d by user %d", role.Name, role.ID, tripID, actor)
	return role, nil
}

// DeleteRole removes a role and cascades: every assignment of the role is
// dropped, and every channel whose required-role set becomes empty is
// archived (never deleted) with its accessor set snapshotted first, so
// history stays readable to the people who could see it. The whole cascade
// commits or rolls back with the deletion itself.
func (rr *RoleRegistry) DeleteRole(ctx context.Context, roleID uint, actor uint) error {
	var (
		archived     []uint
		affectedUser []uint
	)
	err := rr.store.Tx(ctx, func(tx Store) error {
		role, err := tx.GetRole(ctx, roleID)
		if err != nil {
			return err
		}
		if role == nil {
			return apperror.NotFound("role not found")
		}
		ok, err := rr.admins.hasPermission(ctx, tx, role.TripID, actor, models.PermManageRoles)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Unauthorized("manage-roles permission required")
		}

		holders, err := tx.ListAssignmentsByRole(ctx, roleID)
		if err != nil {
			return err
		}
		for _, a := range holders {
			affectedUser = append(affectedUser, a.UserID)
		}

		channelIDs, err := tx.ChannelsRequiringRole(ctx, roleID)
		if err != nil {
			return err
		}
		for _, channelID := range channelIDs {
			ch, err := tx.GetChannel(ctx, channelID)
			if err != nil {
				return err
			}
			if ch == nil {
				continue
			}
			roleIDs, err := tx.ChannelRoleIDs(ctx, channelID)
			if err != nil {
				return err
			}
			remaining := roleIDs[:0]
			for _, id := range roleIDs {
				if id != roleID {
					remaining = append(remaining, id)
				}
			}
			if len(remaining) == 0 && !ch.IsArchived {
				// Snapshot before the assignments go away: the holders of
				// the dying role are exactly who must keep read access.
				if err := archiveWithSnapshot(ctx, tx, ch); err != nil {
					return err
				}
				archived = append(archived, channelID)
			}
			if err := tx.SetChannelRoles(ctx, channelID, remaining); err != nil {
				return err
			}
		}

		if err := tx.DeleteAssignmentsByRole(ctx, roleID); err != nil {
			return err
		}
		return tx.DeleteRole(ctx, roleID)
	})
	if err != nil {
		return err
	}
	rr.logger.Printf("role %d deleted by user %d (%d channels archived)", roleID, actor, len(archived))
	if rr.notifier != nil {
		for _, channelID := range archived {
			rr.notifier.ChannelChanged(channelID)
		}
		for _, userID := range affectedUser {
			rr.notifier.UserChanged(userID)
		}
	}
	return nil
}

// AssignRole gives userID the role as their primary role. If the user already
// holds a role (any role) the call fails with AlreadyAssigned; replacing a
// role is an explicit revoke-then-assign so admin UIs can surface the step.
func (rr *RoleRegistry) AssignRole(ctx context.Context, tripID, userID, roleID uint, actor uint) (*models.RoleAssignment, error) {
	ok, err := rr.admins.HasPermission(ctx, tripID, actor, models.PermManageRoles)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Unauthorized("manage-roles permission required")
	}
	assignment := &models.RoleAssignment{
		TripID:     tripID,
		UserID:     userID,
		RoleID:     roleID,
		AssignedBy: actor,
	}
	err = rr.store.Tx(ctx, func(tx Store) error {
		role, err := tx.GetRole(ctx, roleID)
		if err != nil {
			return err
		}
		if role == nil || role.TripID != tripID {
			return apperror.NotFound("role not found in this trip")
		}
		existing, err := tx.GetUserAssignment(ctx, tripID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.AlreadyAssigned("user already holds a role in this trip; revoke it first")
		}
		return tx.CreateAssignment(ctx, assignment)
	})
	if err != nil {
		return nil, err
	}
	rr.logger.Printf("role %d assigned to user %d on trip %d by user %d", roleID, userID, tripID, actor)
	return assignment, nil
}

// RevokeRole removes the user's assignment of the role. Revoking a role the
// user does not hold is a no-op success, which keeps bulk admin flows simple.
func (rr *RoleRegistry) RevokeRole(ctx context.Context, tripID, userID, roleID uint, actor uint) error {
	ok, err := rr.admins.HasPermission(ctx, tripID, actor, models.PermManageRoles)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Unauthorized("manage-roles permission required")
	}
	removed, err := rr.store.DeleteAssignment(ctx, tripID, userID, roleID)
	if err != nil {
		return err
	}
	if removed {
		rr.logger.Printf("role %d revoked from user %d on trip %d by user %d", roleID, userID, tripID, actor)
		if rr.notifier != nil {
			rr.notifier.UserChanged(userID)
		}
	}
	return nil
}

// ListRoles returns the trip's roles.
func (rr *RoleRegistry) ListRoles(ctx context.Context, tripID uint) ([]models.Role, error) {
	return rr.store.ListRoles(ctx, tripID)
}

// ListAssignments returns the trip's role assignments.
func (rr *RoleRegistry) ListAssignments(ctx context.Context, tripID uint) ([]models.RoleAssignment, error) {
	return rr.store.ListAssignments(ctx, tripID)
}

// GetUserRole returns the user's primary role, or nil if they hold none.
func (rr *RoleRegistry) GetUserRole(ctx context.Context, tripID, userID uint) (*models.Role, error) {
	assignment, err := rr.store.GetUserAssignment(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, nil
	}
	return rr.store.GetRole(ctx, assignment.RoleID)
}
