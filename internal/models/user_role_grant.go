package models

import "time"

// UserRoleGrant binds a user to a role. A nil CompanyID makes the grant platform-wide.
type UserRoleGrant struct {
	BaseModel

	UserID    string     `gorm:"type:uuid;not null;index:idx_grants_user_active,priority:1" json:"user_id"`
	RoleID    string     `gorm:"type:uuid;not null;index" json:"role_id"`
	Role      *Role      `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CompanyID *string    `gorm:"type:uuid;index" json:"company_id"`
	IsActive  bool       `gorm:"not null;index:idx_grants_user_active,priority:2" json:"is_active"`
	GrantedBy *string    `gorm:"type:uuid" json:"granted_by"`
	GrantedAt time.Time  `gorm:"not null" json:"granted_at"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	RevokedBy *string    `gorm:"type:uuid" json:"revoked_by,omitempty"`
}

// TableName keeps the historical table name.
func (UserRoleGrant) TableName() string {
	return "user_role_grants"
}

// PlatformWide reports whether the grant is not bound to a company.
func (g UserRoleGrant) PlatformWide() bool {
	return g.CompanyID == nil
}

// Live reports whether the grant is active and not expired at the supplied instant.
func (g UserRoleGrant) Live(now time.Time) bool {
	if !g.IsActive {
		return false
	}
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}
