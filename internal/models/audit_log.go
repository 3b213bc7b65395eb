package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records a privileged mutation.
type AuditLog struct {
	ID         string         `gorm:"primaryKey;type:uuid" json:"id"`
	ActorID    *string        `gorm:"type:uuid;index" json:"actor_id"`
	CompanyID  *string        `gorm:"type:uuid;index" json:"company_id"`
	Action     string         `gorm:"not null;index" json:"action"`
	EntityType string         `gorm:"not null;size:50;index:idx_audit_entity,priority:1" json:"entity_type"`
	EntityID   string         `gorm:"size:100;index:idx_audit_entity,priority:2" json:"entity_id"`
	Result     string         `gorm:"not null;size:20" json:"result"`
	Metadata   datatypes.JSON `json:"metadata"`
	IPAddress  string         `json:"ip_address"`
	UserAgent  string         `json:"user_agent"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
