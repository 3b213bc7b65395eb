package services

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jobhive/jobhive/internal/models"
	apperrors "github.com/jobhive/jobhive/pkg/errors"
)

var (
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	// ErrRoleNameExists reports a role name held by another role.
	ErrRoleNameExists = apperrors.New("ROLE_EXISTS", "role name already exists", http.StatusConflict)
	// ErrInvalidPermissionRefs is returned when any permission reference fails to resolve.
	ErrInvalidPermissionRefs = apperrors.New("PERMISSION_NOT_FOUND", "one or more permission IDs are invalid", http.StatusNotFound)
	// ErrSystemRoleRename prevents renaming seeded roles.
	ErrSystemRoleRename = apperrors.New("ROLE_IMMUTABLE", "system roles cannot be renamed", http.StatusBadRequest)
	// ErrSystemRoleDelete prevents deleting seeded roles.
	ErrSystemRoleDelete = apperrors.New("ROLE_IMMUTABLE", "system roles cannot be deleted", http.StatusBadRequest)
	// ErrSystemRoleDeactivate prevents disabling seeded roles.
	ErrSystemRoleDeactivate = apperrors.New("ROLE_IMMUTABLE", "system roles cannot be deactivated", http.StatusBadRequest)
)

// RoleService manages roles and their permission sets.
type RoleService struct {
	db    *gorm.DB
	audit AuditSink
}

// NewRoleService constructs a RoleService using the provided database handle.
func NewRoleService(db *gorm.DB, audit AuditSink) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	return &RoleService{db: db, audit: audit}, nil
}

// CreateRoleInput describes the payload accepted by CreateRole.
// PermissionRefs may hold permission ids or codes.
type CreateRoleInput struct {
	Name           string
	Description    string
	IsActive       *bool
	PermissionRefs []string
	ActorID        string
}

// UpdateRoleInput describes mutable fields on a role. A non-nil PermissionRefs,
// including an empty slice, replaces the whole permission set.
type UpdateRoleInput struct {
	Name           *string
	Description    *string
	IsActive       *bool
	PermissionRefs []string
	ActorID        string
}

// RoleListOptions filters ListRoles.
type RoleListOptions struct {
	IncludeInactive bool
}

// CreateRole registers a role and links its permissions in one transaction.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	role := &models.Role{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    isActive,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Role{}).Where("name = ?", name).Count(&existing).Error; err != nil {
			return storageError("role service: check name", err)
		}
		if existing > 0 {
			return ErrRoleNameExists
		}

		perms, err := resolvePermissionRefs(tx, input.PermissionRefs)
		if err != nil {
			return err
		}

		if err := tx.Create(role).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrRoleNameExists
			}
			return storageError("role service: create role", err)
		}

		if err := replaceRolePermissions(tx, role.ID, perms); err != nil {
			return err
		}
		role.Permissions = perms
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    input.ActorID,
		Action:     AuditRoleCreate,
		EntityType: auditEntityRole,
		EntityID:   role.ID,
		Metadata: map[string]any{
			"name":        role.Name,
			"is_active":   role.IsActive,
			"permissions": role.PermissionCodes(),
		},
	})

	return role, nil
}

// GetRole loads a role and its permissions.
func (s *RoleService) GetRole(ctx context.Context, id string) (*models.Role, error) {
	ctx = ensureContext(ctx)
	return loadRole(s.db.WithContext(ctx), id)
}

// ListRoles returns roles ordered by name.
func (s *RoleService) ListRoles(ctx context.Context, opts RoleListOptions) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Preload("Permissions", orderPermissions)
	if !opts.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}

	var roles []models.Role
	if err := query.Order("name ASC").Find(&roles).Error; err != nil {
		return nil, storageError("role service: list roles", err)
	}
	return roles, nil
}

// UpdateRole modifies role metadata and, when requested, atomically replaces its permission set.
func (s *RoleService) UpdateRole(ctx context.Context, id string, input UpdateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var (
		updated *models.Role
		before  []string
		changes = map[string]any{}
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := lockRole(tx, id, true)
		if err != nil {
			return err
		}
		before = role.PermissionCodes()

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return apperrors.NewBadRequest("role name cannot be empty")
			}
			if name != role.Name {
				if role.IsSystem {
					return ErrSystemRoleRename
				}
				var taken int64
				if err := tx.Model(&models.Role{}).Where("name = ? AND id <> ?", name, role.ID).Count(&taken).Error; err != nil {
					return storageError("role service: check name", err)
				}
				if taken > 0 {
					return ErrRoleNameExists
				}
				changes["name"] = name
			}
		}
		if input.Description != nil {
			if desc := strings.TrimSpace(*input.Description); desc != role.Description {
				changes["description"] = desc
			}
		}
		if input.IsActive != nil && *input.IsActive != role.IsActive {
			if role.IsSystem && !*input.IsActive {
				return ErrSystemRoleDeactivate
			}
			changes["is_active"] = *input.IsActive
		}

		var perms []models.Permission
		if input.PermissionRefs != nil {
			resolved, err := resolvePermissionRefs(tx, input.PermissionRefs)
			if err != nil {
				return err
			}
			perms = resolved
		}

		if len(changes) > 0 {
			if err := tx.Model(role).Updates(changes).Error; err != nil {
				if isUniqueConstraintError(err) {
					return ErrRoleNameExists
				}
				return storageError("role service: update role", err)
			}
		}

		if input.PermissionRefs != nil {
			if err := replaceRolePermissions(tx, role.ID, perms); err != nil {
				return err
			}
		}

		reloaded, err := loadRole(tx, role.ID)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := AuditRoleUpdate
	metadata := make(map[string]any, len(changes)+2)
	for key, value := range changes {
		metadata[key] = value
	}
	if input.PermissionRefs != nil {
		if len(changes) == 0 {
			action = AuditRolePermissionsSet
		}
		metadata["permissions_before"] = before
		metadata["permissions_after"] = updated.PermissionCodes()
	}
	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    input.ActorID,
		Action:     action,
		EntityType: auditEntityRole,
		EntityID:   updated.ID,
		Metadata:   metadata,
	})

	return updated, nil
}

// AssignPermissions replaces the role's permission set with refs. It is never incremental.
func (s *RoleService) AssignPermissions(ctx context.Context, id string, refs []string, actorID string) (*models.Role, error) {
	if refs == nil {
		refs = []string{}
	}
	return s.UpdateRole(ctx, id, UpdateRoleInput{PermissionRefs: refs, ActorID: actorID})
}

// RemovePermissions drops refs from the role's permission set.
func (s *RoleService) RemovePermissions(ctx context.Context, id string, refs []string, actorID string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var (
		updated *models.Role
		removed []string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := lockRole(tx, id, false)
		if err != nil {
			return err
		}

		perms, err := resolvePermissionRefs(tx, refs)
		if err != nil {
			return err
		}
		if len(perms) > 0 {
			ids := make([]string, 0, len(perms))
			for _, perm := range perms {
				ids = append(ids, perm.ID)
				removed = append(removed, perm.Code)
			}
			if err := tx.Where("role_id = ? AND permission_id IN ?", role.ID, ids).
				Delete(&models.RolePermission{}).Error; err != nil {
				return storageError("role service: remove permissions", err)
			}
		}

		reloaded, err := loadRole(tx, role.ID)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    actorID,
		Action:     AuditRolePermissionsDrop,
		EntityType: auditEntityRole,
		EntityID:   updated.ID,
		Metadata: map[string]any{
			"removed":           removed,
			"permissions_after": updated.PermissionCodes(),
		},
	})

	return updated, nil
}

// DeleteRole hard-deletes a non-system role together with its permission links
// and every grant that references it. One audit event is emitted per removed grant.
func (s *RoleService) DeleteRole(ctx context.Context, id, actorID string) error {
	ctx = ensureContext(ctx)

	var (
		role   *models.Role
		grants []models.UserRoleGrant
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockRole(tx, id, false)
		if err != nil {
			return err
		}
		role = locked
		if role.IsSystem {
			return ErrSystemRoleDelete
		}

		if err := tx.Where("role_id = ?", role.ID).Find(&grants).Error; err != nil {
			return storageError("role service: load grants", err)
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.UserRoleGrant{}).Error; err != nil {
			return storageError("role service: delete grants", err)
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return storageError("role service: delete role permissions", err)
		}
		if err := tx.Delete(role).Error; err != nil {
			return storageError("role service: delete role", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, grant := range grants {
		metadata := map[string]any{
			"user_id":   grant.UserID,
			"role_id":   grant.RoleID,
			"role_name": role.Name,
			"is_active": grant.IsActive,
		}
		if grant.CompanyID != nil {
			metadata["company_id"] = *grant.CompanyID
		}
		recordAudit(s.audit, ctx, AuditEvent{
			ActorID:    actorID,
			Action:     AuditGrantCascadeDelete,
			EntityType: auditEntityGrant,
			EntityID:   grant.ID,
			Metadata:   metadata,
		})
	}

	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    actorID,
		Action:     AuditRoleDelete,
		EntityType: auditEntityRole,
		EntityID:   role.ID,
		Metadata: map[string]any{
			"name":           role.Name,
			"grants_removed": len(grants),
		},
	})

	return nil
}

// lockRole loads the role row with a write lock held until the transaction ends.
func lockRole(tx *gorm.DB, id string, withPermissions bool) (*models.Role, error) {
	id = strings.TrimSpace(id)
	if !isValidID(id) {
		return nil, ErrRoleNotFound
	}

	query := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	if withPermissions {
		query = query.Preload("Permissions", orderPermissions)
	}

	var role models.Role
	if err := query.First(&role, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, storageError("role service: load role", err)
	}
	return &role, nil
}

func loadRole(db *gorm.DB, id string) (*models.Role, error) {
	id = strings.TrimSpace(id)
	if !isValidID(id) {
		return nil, ErrRoleNotFound
	}

	var role models.Role
	if err := db.Preload("Permissions", orderPermissions).First(&role, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, storageError("role service: load role", err)
	}
	return &role, nil
}

func orderPermissions(db *gorm.DB) *gorm.DB {
	return db.Order("permissions.code ASC")
}

// resolvePermissionRefs maps ids or codes to permissions. Every reference must match.
func resolvePermissionRefs(tx *gorm.DB, refs []string) ([]models.Permission, error) {
	refs = normaliseIDs(refs)
	if len(refs) == 0 {
		return []models.Permission{}, nil
	}

	var byCode []models.Permission
	if err := tx.Where("code IN ?", refs).Find(&byCode).Error; err != nil {
		return nil, storageError("role service: resolve permission codes", err)
	}

	matched := make(map[string]struct{}, len(refs))
	found := make(map[string]models.Permission, len(refs))
	for _, perm := range byCode {
		matched[perm.Code] = struct{}{}
		found[perm.ID] = perm
	}

	var ids []string
	for _, ref := range refs {
		if _, ok := matched[ref]; ok {
			continue
		}
		if !isValidID(ref) {
			return nil, ErrInvalidPermissionRefs
		}
		ids = append(ids, ref)
	}

	if len(ids) > 0 {
		var byID []models.Permission
		if err := tx.Where("id IN ?", ids).Find(&byID).Error; err != nil {
			return nil, storageError("role service: resolve permission ids", err)
		}
		if len(byID) != len(ids) {
			return nil, ErrInvalidPermissionRefs
		}
		for _, perm := range byID {
			found[perm.ID] = perm
		}
	}

	perms := make([]models.Permission, 0, len(found))
	for _, perm := range found {
		perms = append(perms, perm)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Code < perms[j].Code })
	return perms, nil
}

// replaceRolePermissions swaps the role's links inside the caller's transaction.
func replaceRolePermissions(tx *gorm.DB, roleID string, perms []models.Permission) error {
	if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
		return storageError("role service: clear role permissions", err)
	}
	if len(perms) == 0 {
		return nil
	}

	now := time.Now()
	links := make([]models.RolePermission, 0, len(perms))
	for _, perm := range perms {
		links = append(links, models.RolePermission{RoleID: roleID, PermissionID: perm.ID, CreatedAt: now})
	}
	if err := tx.Create(&links).Error; err != nil {
		return storageError("role service: link role permissions", err)
	}
	return nil
}
