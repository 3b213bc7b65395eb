package models

import "time"

// RolePermission is the join row between a role and a permission.
type RolePermission struct {
	RoleID       string    `gorm:"primaryKey;type:uuid" json:"role_id"`
	PermissionID string    `gorm:"primaryKey;type:uuid;index" json:"permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName pins the join table shared with the Role.Permissions association.
func (RolePermission) TableName() string {
	return "role_permissions"
}
