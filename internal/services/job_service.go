package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/internal/permissions"
	apperrors "github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/metrics"
)

// ErrJobNotFound is only returned to platform-wide callers.
var ErrJobNotFound = apperrors.New("JOB_NOT_FOUND", "Job not found", http.StatusNotFound)

// Moderation decisions and bulk actions.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"

	BulkActionApprove = "approve"
	BulkActionReject  = "reject"
)

// JobFilters narrows ListJobs. Status is one of active, inactive, pending or a stored status.
type JobFilters struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// JobStats summarises moderation state within a scope.
type JobStats struct {
	Total    int64            `json:"total"`
	Active   int64            `json:"active"`
	Inactive int64            `json:"inactive"`
	ByStatus map[string]int64 `json:"by_status"`
}

// BulkModerateResult reports the outcome for one job of a bulk request.
type BulkModerateResult struct {
	JobID   string `json:"job_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkModerateSummary aggregates per-item results.
type BulkModerateSummary struct {
	Results   []BulkModerateResult `json:"results"`
	Processed int                  `json:"processed"`
}

// JobService moderates job postings inside the caller's company scope.
type JobService struct {
	db    *gorm.DB
	audit AuditSink
	now   func() time.Time
}

// NewJobService constructs a JobService instance.
func NewJobService(db *gorm.DB, audit AuditSink) (*JobService, error) {
	if db == nil {
		return nil, errors.New("job service: db is required")
	}
	return &JobService{db: db, audit: audit, now: time.Now}, nil
}

// ListJobs returns jobs visible in scope, newest first.
func (s *JobService) ListJobs(ctx context.Context, scope permissions.Scope, filters JobFilters) ([]models.Job, int64, error) {
	ctx = ensureContext(ctx)

	page, perPage := normalisePage(filters.Page, filters.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Job{}).Scopes(scope.Filter("company_id"))
	switch status := strings.ToLower(strings.TrimSpace(filters.Status)); status {
	case "":
	case models.JobStatusActive:
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	default:
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageError("job service: count jobs", err)
	}

	var jobs []models.Job
	if err := query.Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&jobs).Error; err != nil {
		return nil, 0, storageError("job service: list jobs", err)
	}
	return jobs, total, nil
}

// GetJob loads a job visible in scope. Missing and foreign jobs yield the same denial.
func (s *JobService) GetJob(ctx context.Context, scope permissions.Scope, id string) (*models.Job, error) {
	ctx = ensureContext(ctx)
	return s.scopedJob(s.db.WithContext(ctx), scope, id)
}

// ModerateJob approves or rejects a job. Approval activates it.
func (s *JobService) ModerateJob(ctx context.Context, scope permissions.Scope, actorID, id, decision, reason string) (*models.Job, error) {
	ctx = ensureContext(ctx)

	decision = strings.ToLower(strings.TrimSpace(decision))
	if decision != DecisionApproved && decision != DecisionRejected {
		return nil, apperrors.NewBadRequest("decision must be approved or rejected")
	}

	job, err := s.scopedJob(s.db.WithContext(ctx), scope, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := models.JobStatusActive
	if decision == DecisionRejected {
		status = models.JobStatusRejected
	}
	updates := map[string]any{
		"is_active":    decision == DecisionApproved,
		"status":       status,
		"moderated_by": optionalString(actorID),
		"moderated_at": now,
	}
	if err := s.db.WithContext(ctx).Model(job).Updates(updates).Error; err != nil {
		return nil, storageError("job service: moderate job", err)
	}

	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    actorID,
		Action:     AuditJobModerate,
		EntityType: auditEntityJob,
		EntityID:   job.ID,
		Metadata: map[string]any{
			"company_id": job.CompanyID,
			"decision":   decision,
			"reason":     strings.TrimSpace(reason),
		},
	})

	return s.scopedJob(s.db.WithContext(ctx), scope, job.ID)
}

// FlagJob deactivates a job and records why.
func (s *JobService) FlagJob(ctx context.Context, scope permissions.Scope, actorID, id, reason, category string) (*models.Job, error) {
	ctx = ensureContext(ctx)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewBadRequest("flag reason is required")
	}

	job, err := s.scopedJob(s.db.WithContext(ctx), scope, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"is_active":     false,
		"status":        models.JobStatusFlagged,
		"flag_reason":   reason,
		"flag_category": strings.TrimSpace(category),
		"moderated_by":  optionalString(actorID),
		"moderated_at":  s.now(),
	}
	if err := s.db.WithContext(ctx).Model(job).Updates(updates).Error; err != nil {
		return nil, storageError("job service: flag job", err)
	}

	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    actorID,
		Action:     AuditJobFlag,
		EntityType: auditEntityJob,
		EntityID:   job.ID,
		Metadata: map[string]any{
			"company_id": job.CompanyID,
			"reason":     reason,
			"category":   strings.TrimSpace(category),
		},
	})

	return s.scopedJob(s.db.WithContext(ctx), scope, job.ID)
}

// BulkModerate applies one action to many jobs, reporting per-item results.
// Jobs outside scope fail individually with the usual scope denial.
func (s *JobService) BulkModerate(ctx context.Context, scope permissions.Scope, actorID string, ids []string, action, reason string) (*BulkModerateSummary, error) {
	ctx = ensureContext(ctx)

	var decision string
	switch strings.ToLower(strings.TrimSpace(action)) {
	case BulkActionApprove:
		decision = DecisionApproved
	case BulkActionReject:
		decision = DecisionRejected
	default:
		return nil, apperrors.NewBadRequest("action must be approve or reject")
	}

	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return nil, apperrors.NewBadRequest("job ids are required")
	}

	summary := &BulkModerateSummary{Results: make([]BulkModerateResult, 0, len(ids))}
	for _, id := range ids {
		result := BulkModerateResult{JobID: id, Success: true}
		if _, err := s.ModerateJob(ctx, scope, actorID, id, decision, reason); err != nil {
			if apperrors.IsRetryable(err) {
				return nil, err
			}
			result.Success = false
			result.Error = apperrors.FromError(err).Message
		} else {
			summary.Processed++
		}
		summary.Results = append(summary.Results, result)
	}

	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    actorID,
		CompanyID:  scope.CompanyID,
		Action:     AuditJobBulkModerate,
		EntityType: auditEntityJob,
		Metadata: map[string]any{
			"action":    decision,
			"requested": len(ids),
			"processed": summary.Processed,
		},
	})

	return summary, nil
}

// JobStats counts jobs visible in scope.
func (s *JobService) JobStats(ctx context.Context, scope permissions.Scope) (*JobStats, error) {
	ctx = ensureContext(ctx)

	type statusRow struct {
		Status   string
		IsActive bool
		Count    int64
	}
	var rows []statusRow
	if err := s.db.WithContext(ctx).Model(&models.Job{}).
		Scopes(scope.Filter("company_id")).
		Select("status, is_active, COUNT(*) AS count").
		Group("status, is_active").
		Scan(&rows).Error; err != nil {
		return nil, storageError("job service: job stats", err)
	}

	stats := &JobStats{ByStatus: make(map[string]int64)}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByStatus[row.Status] += row.Count
		if row.IsActive {
			stats.Active += row.Count
		} else {
			stats.Inactive += row.Count
		}
	}
	return stats, nil
}

// scopedJob loads a job through the scope filter. Platform-wide callers get a
// plain not-found; scoped callers cannot tell missing from foreign.
func (s *JobService) scopedJob(db *gorm.DB, scope permissions.Scope, id string) (*models.Job, error) {
	id = strings.TrimSpace(id)
	if !isValidID(id) {
		return nil, denyJob(scope)
	}

	var job models.Job
	if err := db.Scopes(scope.Filter("company_id")).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, denyJob(scope)
		}
		return nil, storageError("job service: load job", err)
	}
	if !permissions.EnforceScope(scope, job.CompanyID) {
		return nil, denyJob(scope)
	}
	return &job, nil
}

func denyJob(scope permissions.Scope) error {
	if scope.All {
		return ErrJobNotFound
	}
	metrics.ScopeDenials.WithLabelValues(auditEntityJob).Inc()
	return permissions.ErrOutOfScope
}
