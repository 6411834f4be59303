package chat

import (
	"context"
	"log"

	"tripchat/apperror"
	"tripchat/models"
)

// AdminRegistry answers "may this user administer this trip?" for every
// mutating operation in the role and channel registries.
type AdminRegistry struct {
	store  Store
	logger *log.Logger
}

func NewAdminRegistry(store Store, logger *log.Logger) *AdminRegistry {
	return &AdminRegistry{store: store, logger: logger}
}

// HasPermission reports whether the user holds the given permission on the
// trip. The trip creator is an implicit admin with every permission,
// independent of grant rows, so a trip can never end up with zero admins.
func (ar *AdminRegistry) HasPermission(ctx context.Context, tripID, userID uint, perm models.AdminPermission) (bool, error) {
	return ar.hasPermission(ctx, ar.store, tripID, userID, perm)
}

// hasPermission runs against the given store view so checks made inside a
// transaction share the mutation's snapshot of grant state.
func (ar *AdminRegistry) hasPermission(ctx context.Context, s Store, tripID, userID uint, perm models.AdminPermission) (bool, error) {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return false, err
	}
	if trip.CreatorID == userID {
		return true, nil
	}
	grant, err := s.GetAdminGrant(ctx, tripID, userID)
	if err != nil {
		return false, err
	}
	if grant == nil {
		return false, nil
	}
	return grant.Has(perm), nil
}

// IsAdmin reports whether the user holds any admin permission on the trip.
func (ar *AdminRegistry) IsAdmin(ctx context.Context, tripID, userID uint) (bool, error) {
	trip, err := ar.store.GetTrip(ctx, tripID)
	if err != nil {
		return false, err
	}
	if trip.CreatorID == userID {
		return true, nil
	}
	grant, err := ar.store.GetAdminGrant(ctx, tripID, userID)
	if err != nil {
		return false, err
	}
	return grant != nil && (grant.ManageRoles || grant.ManageChannels || grant.DesignateAdmins), nil
}

// Permissions is the tri-part permission set carried by a grant.
type Permissions struct {
	ManageRoles     bool `json:"manage_roles"`
	ManageChannels  bool `json:"manage_channels"`
	DesignateAdmins bool `json:"designate_admins"`
}

// GrantAdmin gives targetUserID the permission set, overwriting any existing
// grant: grants are not additive, the latest call is authoritative.
func (ar *AdminRegistry) GrantAdmin(ctx context.Context, tripID, targetUserID uint, perms Permissions, actor uint) (*models.AdminGrant, error) {
	ok, err := ar.HasPermission(ctx, tripID, actor, models.PermDesignateAdmins)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Unauthorized("designate-admins permission required")
	}
	grant := &models.AdminGrant{
		TripID:          tripID,
		UserID:          targetUserID,
		ManageRoles:     perms.ManageRoles,
		ManageChannels:  perms.ManageChannels,
		DesignateAdmins: perms.DesignateAdmins,
		GrantedBy:       actor,
	}
	if err := ar.store.UpsertAdminGrant(ctx, grant); err != nil {
		return nil, err
	}
	ar.logger.Printf("admin grant for user %d on trip %d by user %d", targetUserID, tripID, actor)
	return grant, nil
}

// RevokeAdmin removes targetUserID's grant. Revoking a user who holds no
// grant is a no-op success.
func (ar *AdminRegistry) RevokeAdmin(ctx context.Context, tripID, targetUserID uint, actor uint) error {
	ok, err := ar.HasPermission(ctx, tripID, actor, models.PermDesignateAdmins)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Unauthorized("designate-admins permission required")
	}
	removed, err := ar.store.DeleteAdminGrant(ctx, tripID, targetUserID)
	if err != nil {
		return err
	}
	if removed {
		ar.logger.Printf("admin grant revoked for user %d on trip %d by user %d", targetUserID, tripID, actor)
	}
	return nil
}

// ListGrants returns the explicit grant rows for a trip. The implicit
// creator grant is not materialized here.
func (ar *AdminRegistry) ListGrants(ctx context.Context, tripID uint) ([]models.AdminGrant, error) {
	return ar.store.ListAdminGrants(ctx, tripID)
}
