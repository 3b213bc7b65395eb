package models

import "gorm.io/datatypes"

// Company is a tenant. Company-scoped grants and jobs reference it.
type Company struct {
	BaseModel

	Name        string         `gorm:"not null" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:150" json:"slug"`
	Description string         `json:"description"`
	Settings    datatypes.JSON `json:"settings"`
	IsActive    bool           `gorm:"not null" json:"is_active"`
}
