package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/auditctx"
	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/internal/permissions"
	"github.com/jobhive/jobhive/pkg/logger"
	"github.com/jobhive/jobhive/pkg/metrics"
)

// AuditEvent is a structured record of a privileged mutation. CompanyID ties
// the entry to a tenant; when empty a "company_id" metadata string is used.
type AuditEvent struct {
	ActorID    string
	CompanyID  string
	Action     string
	EntityType string
	EntityID   string
	Result     string
	Metadata   map[string]any
}

// AuditSink receives audit events. Implementations own storage and retry;
// callers never observe sink failures.
type AuditSink interface {
	RecordAuditEvent(ctx context.Context, event AuditEvent)
}

// AuditFilters encapsulates optional filters when querying audit logs.
type AuditFilters struct {
	ActorID    string
	Action     string
	Result     string
	EntityType string
	EntityID   string
	Since      *time.Time
	Until      *time.Time
}

// AuditListOptions controls pagination and filtering for audit queries.
type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService persists and retrieves audit log entries.
type AuditService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, log: logger.WithModule("audit")}, nil
}

// RecordAuditEvent persists the event and logs, rather than returns, any failure.
func (s *AuditService) RecordAuditEvent(ctx context.Context, event AuditEvent) {
	if err := s.Log(ctx, event); err != nil {
		metrics.AuditWriteFailures.Inc()
		s.log.Warn("audit write failed",
			zap.String("action", event.Action),
			zap.String("entity_type", event.EntityType),
			zap.String("entity_id", event.EntityID),
			zap.Error(err),
		)
	}
}

// Log stores an audit event, enriching it with the request actor carried in ctx.
func (s *AuditService) Log(ctx context.Context, event AuditEvent) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(event.Action) == "" {
		return errors.New("audit service: action is required")
	}
	if strings.TrimSpace(event.Result) == "" {
		return errors.New("audit service: result is required")
	}

	var payload datatypes.JSON
	if event.Metadata != nil {
		encoded, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		payload = datatypes.JSON(encoded)
	}

	entry := models.AuditLog{
		ActorID:    optionalString(event.ActorID),
		CompanyID:  optionalString(eventCompanyID(event)),
		Action:     strings.TrimSpace(event.Action),
		EntityType: strings.TrimSpace(event.EntityType),
		EntityID:   strings.TrimSpace(event.EntityID),
		Result:     strings.TrimSpace(event.Result),
		Metadata:   payload,
	}

	if actor, ok := auditctx.FromContext(ctx); ok {
		if entry.ActorID == nil {
			entry.ActorID = optionalString(actor.UserID)
		}
		entry.IPAddress = strings.TrimSpace(actor.IPAddress)
		entry.UserAgent = strings.TrimSpace(actor.UserAgent)
	}

	return s.db.WithContext(ctx).Create(&entry).Error
}

// List returns paginated audit logs visible in scope ordered by creation time
// descending. A company scope only sees entries tied to that company.
func (s *AuditService) List(ctx context.Context, scope permissions.Scope, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	ctx = ensureContext(ctx)

	page, perPage := normalisePage(opts.Page, opts.PageSize)

	var (
		results []models.AuditLog
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.AuditLog{}).Scopes(scope.Filter("company_id"))
	query = applyAuditFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageError("audit service: count logs", err)
	}

	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, storageError("audit service: list logs", err)
	}

	return results, total, nil
}

// CleanupOlderThan removes audit logs older than the supplied retention window (in days).
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func eventCompanyID(event AuditEvent) string {
	if id := strings.TrimSpace(event.CompanyID); id != "" {
		return id
	}
	if id, ok := event.Metadata["company_id"].(string); ok {
		return strings.TrimSpace(id)
	}
	return ""
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.ActorID != "" {
		query = query.Where("actor_id = ?", filters.ActorID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Result != "" {
		query = query.Where("result = ?", filters.Result)
	}
	if filters.EntityType != "" {
		query = query.Where("entity_type = ?", filters.EntityType)
	}
	if filters.EntityID != "" {
		query = query.Where("entity_id = ?", filters.EntityID)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
