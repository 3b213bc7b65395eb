package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/models"
	apperrors "github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/validator"
)

var (
	// ErrPermissionNotFound indicates the requested permission does not exist.
	ErrPermissionNotFound = apperrors.New("PERMISSION_NOT_FOUND", "Permission not found", http.StatusNotFound)
	// ErrPermissionCodeExists reports a duplicate permission code.
	ErrPermissionCodeExists = apperrors.New("PERMISSION_EXISTS", "permission code already exists", http.StatusConflict)
)

// PermissionService manages the permission catalog. Permissions are additive only.
type PermissionService struct {
	db    *gorm.DB
	audit AuditSink
}

// NewPermissionService constructs a PermissionService using the provided database handle.
func NewPermissionService(db *gorm.DB, audit AuditSink) (*PermissionService, error) {
	if db == nil {
		return nil, errors.New("permission service: db is required")
	}
	return &PermissionService{db: db, audit: audit}, nil
}

// CreatePermissionInput describes the payload accepted by CreatePermission.
type CreatePermissionInput struct {
	Code        string
	Resource    string
	Action      string
	Description string
	IsActive    *bool
	ActorID     string
}

// CreatePermission adds a permission to the catalog. Codes are matched exactly.
func (s *PermissionService) CreatePermission(ctx context.Context, input CreatePermissionInput) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	code := strings.TrimSpace(input.Code)
	resource := strings.TrimSpace(input.Resource)
	action := strings.TrimSpace(input.Action)
	switch {
	case code == "":
		return nil, apperrors.NewBadRequest("permission code is required")
	case !validator.IsPermissionCode(code):
		return nil, apperrors.NewBadRequest("permission code may only contain letters, digits, '_', '.', ':' and '-'")
	case resource == "" || action == "":
		return nil, apperrors.NewBadRequest("permission resource and action are required")
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	perm := &models.Permission{
		Code:        code,
		Resource:    resource,
		Action:      action,
		Description: strings.TrimSpace(input.Description),
		IsActive:    isActive,
	}

	if err := s.db.WithContext(ctx).Create(perm).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrPermissionCodeExists
		}
		return nil, storageError("permission service: create permission", err)
	}

	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    input.ActorID,
		Action:     AuditPermissionCreate,
		EntityType: auditEntityPermission,
		EntityID:   perm.ID,
		Metadata: map[string]any{
			"code":     perm.Code,
			"resource": perm.Resource,
			"action":   perm.Action,
		},
	})

	return perm, nil
}

// ListPermissions returns the catalog grouped by resource and action.
func (s *PermissionService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	var perms []models.Permission
	if err := s.db.WithContext(ctx).
		Order("resource ASC").
		Order("action ASC").
		Order("code ASC").
		Find(&perms).Error; err != nil {
		return nil, storageError("permission service: list permissions", err)
	}
	return perms, nil
}

// GetPermission loads a permission by id.
func (s *PermissionService) GetPermission(ctx context.Context, id string) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if !isValidID(id) {
		return nil, ErrPermissionNotFound
	}

	var perm models.Permission
	if err := s.db.WithContext(ctx).First(&perm, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, storageError("permission service: load permission", err)
	}
	return &perm, nil
}
