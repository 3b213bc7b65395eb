package models

import "time"

// Job moderation states.
const (
	JobStatusPending  = "pending"
	JobStatusActive   = "active"
	JobStatusRejected = "rejected"
	JobStatusFlagged  = "flagged"
)

// Job is a posting owned by exactly one company.
type Job struct {
	BaseModel

	CompanyID    string     `gorm:"type:uuid;not null;index" json:"company_id"`
	Title        string     `gorm:"not null" json:"title"`
	Description  string     `json:"description"`
	Status       string     `gorm:"not null;size:20;index" json:"status"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	FlagReason   string     `json:"flag_reason,omitempty"`
	FlagCategory string     `json:"flag_category,omitempty"`
	ModeratedBy  *string    `gorm:"type:uuid" json:"moderated_by,omitempty"`
	ModeratedAt  *time.Time `json:"moderated_at,omitempty"`
}
