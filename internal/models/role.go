package models

// Role is a named bundle of permissions. Names are unique across active and inactive roles.
type Role struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"not null;index" json:"is_active"`
	IsSystem    bool   `gorm:"not null" json:"is_system"`

	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
}

// PermissionCodes returns the codes of the loaded permissions in their stored order.
func (r *Role) PermissionCodes() []string {
	if r == nil {
		return nil
	}
	codes := make([]string, 0, len(r.Permissions))
	for _, perm := range r.Permissions {
		codes = append(codes, perm.Code)
	}
	return codes
}
