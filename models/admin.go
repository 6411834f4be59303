package models

import "gorm.io/gorm"

// AdminGrant records administrative permission over a trip's roles and
// channels. Grants are not additive: the latest grant for a (trip, user)
// pair is authoritative. The trip creator is an implicit admin with all
// three permissions and needs no row here.
type AdminGrant struct {
	gorm.Model
	TripID uint `gorm:"not null;index:idx_admin_grants_trip_user,unique" json:"trip_id"`
	UserID uint `gorm:"not null;index:idx_admin_grants_trip_user,unique" json:"user_id"`

	ManageRoles     bool `gorm:"default:false" json:"manage_roles"`
	ManageChannels  bool `gorm:"default:false" json:"manage_channels"`
	DesignateAdmins bool `gorm:"default:false" json:"designate_admins"`

	GrantedBy uint `gorm:"not null" json:"granted_by"`
}

// AdminPermission names one of the three grantable permissions.
type AdminPermission string

const (
	PermManageRoles     AdminPermission = "manage_roles"
	PermManageChannels  AdminPermission = "manage_channels"
	PermDesignateAdmins AdminPermission = "designate_admins"
)

// Has reports whether the grant includes the given permission.
func (g *AdminGrant) Has(p AdminPermission) bool {
	switch p {
	case PermManageRoles:
		return g.ManageRoles
	case PermManageChannels:
		return g.ManageChannels
	case PermDesignateAdmins:
		return g.DesignateAdmins
	}
	return false
}
