package models

// Permission is an atomic capability identified by its code. Rows are additive only.
type Permission struct {
	BaseModel

	Code        string `gorm:"uniqueIndex;not null;size:100" json:"code"`
	Resource    string `gorm:"not null;size:100;index:idx_permissions_resource_action,priority:1" json:"resource"`
	Action      string `gorm:"not null;size:100;index:idx_permissions_resource_action,priority:2" json:"action"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"not null" json:"is_active"`
}
