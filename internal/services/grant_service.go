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
)

var (
	// ErrGrantNotFound is returned when no active grant matches a revoke request.
	ErrGrantNotFound = apperrors.New("GRANT_NOT_FOUND", "no active grant found for user and role", http.StatusNotFound)
	// ErrInactiveRoleGrant rejects grants of deactivated roles.
	ErrInactiveRoleGrant = apperrors.New("ROLE_INACTIVE", "inactive roles cannot be granted", http.StatusBadRequest)
	// ErrPrivilegedRoleGrant restricts SUPER_ADMIN and ADMIN grants to super admins.
	ErrPrivilegedRoleGrant = apperrors.New("FORBIDDEN", "only SUPER_ADMIN may grant or revoke SUPER_ADMIN or ADMIN", http.StatusForbidden)
	// ErrSystemRoleGrant restricts system role grants to administrators.
	ErrSystemRoleGrant = apperrors.New("FORBIDDEN", "system roles may only be granted by SUPER_ADMIN or ADMIN", http.StatusForbidden)
	// ErrCompanyScopedSuperAdmin rejects SUPER_ADMIN grants bound to a company.
	ErrCompanyScopedSuperAdmin = apperrors.New("BAD_REQUEST", "SUPER_ADMIN can only be granted platform-wide", http.StatusBadRequest)
	// ErrSelfRevoke prevents a super admin from locking themselves out.
	ErrSelfRevoke = apperrors.New("FORBIDDEN", "cannot revoke your own SUPER_ADMIN role", http.StatusForbidden)
)

// PrincipalLoader builds a principal from live grants.
type PrincipalLoader interface {
	Load(ctx context.Context, userID, roleHint string) (*permissions.Principal, error)
}

// GrantService issues and revokes user role grants.
type GrantService struct {
	db     *gorm.DB
	audit  AuditSink
	loader PrincipalLoader
	now    func() time.Time
}

// NewGrantService constructs a GrantService. The loader is used to evaluate the
// privileges of the granting or revoking user.
func NewGrantService(db *gorm.DB, audit AuditSink, loader PrincipalLoader) (*GrantService, error) {
	if db == nil {
		return nil, errors.New("grant service: db is required")
	}
	if loader == nil {
		return nil, errors.New("grant service: principal loader is required")
	}
	return &GrantService{db: db, audit: audit, loader: loader, now: time.Now}, nil
}

// GrantRoleInput describes a grant request. A nil CompanyID issues a platform-wide grant.
type GrantRoleInput struct {
	GranterID string
	UserID    string
	RoleID    string
	CompanyID *string
	ExpiresAt *time.Time
}

// RevokeRoleInput describes a revoke request.
type RevokeRoleInput struct {
	RevokerID string
	UserID    string
	RoleID    string
}

// GrantRole binds a user to a role. Identical calls create separate rows; callers
// that need idempotence must check for an existing active grant first.
func (s *GrantService) GrantRole(ctx context.Context, input GrantRoleInput) (*models.UserRoleGrant, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	roleID := strings.TrimSpace(input.RoleID)
	if userID == "" || roleID == "" {
		return nil, apperrors.NewBadRequest("user id and role id are required")
	}

	var companyID *string
	if input.CompanyID != nil {
		companyID = optionalString(*input.CompanyID)
	}

	now := s.now()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, apperrors.NewBadRequest("expires_at must be in the future")
	}

	db := s.db.WithContext(ctx)

	role, err := findRole(db, roleID)
	if err != nil {
		return nil, err
	}
	if !role.IsActive {
		return nil, ErrInactiveRoleGrant
	}
	if role.Name == permissions.RoleSuperAdmin && companyID != nil {
		return nil, ErrCompanyScopedSuperAdmin
	}
	if _, err := findUser(db, userID); err != nil {
		return nil, err
	}
	if companyID != nil {
		if _, err := findCompany(db, *companyID); err != nil {
			return nil, err
		}
	}

	if err := s.checkGranter(ctx, input.GranterID, role, companyID); err != nil {
		return nil, err
	}

	grant := &models.UserRoleGrant{
		UserID:    userID,
		RoleID:    role.ID,
		CompanyID: companyID,
		IsActive:  true,
		GrantedBy: optionalString(input.GranterID),
		GrantedAt: now,
		ExpiresAt: input.ExpiresAt,
	}
	if err := db.Create(grant).Error; err != nil {
		return nil, storageError("grant service: create grant", err)
	}
	grant.Role = role

	metadata := map[string]any{
		"user_id":   userID,
		"role_id":   role.ID,
		"role_name": role.Name,
	}
	if !grant.PlatformWide() {
		metadata["company_id"] = *grant.CompanyID
	}
	if input.ExpiresAt != nil {
		metadata["expires_at"] = input.ExpiresAt.UTC().Format(time.RFC3339)
	}
	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    input.GranterID,
		Action:     AuditGrantCreate,
		EntityType: auditEntityGrant,
		EntityID:   grant.ID,
		Metadata:   metadata,
	})

	return grant, nil
}

// RevokeRole deactivates every active grant of the role held by the user. Rows
// are kept for the audit trail.
func (s *GrantService) RevokeRole(ctx context.Context, input RevokeRoleInput) error {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	roleID := strings.TrimSpace(input.RoleID)
	if userID == "" || roleID == "" {
		return apperrors.NewBadRequest("user id and role id are required")
	}

	db := s.db.WithContext(ctx)
	role, err := findRole(db, roleID)
	if err != nil {
		return err
	}

	revokerID := strings.TrimSpace(input.RevokerID)
	if revokerID != "" && revokerID == userID && role.Name == permissions.RoleSuperAdmin {
		return ErrSelfRevoke
	}

	scope := permissions.ScopeAll
	if revokerID != "" {
		revoker, err := s.loader.Load(ctx, revokerID, "")
		if err != nil {
			return err
		}
		if isPrivilegedRole(role.Name) && !revoker.HasRole(permissions.RoleSuperAdmin) {
			return ErrPrivilegedRoleGrant
		}
		scope, err = permissions.ResolveScope(revoker)
		if err != nil {
			return err
		}
	}

	now := s.now()
	result := db.Model(&models.UserRoleGrant{}).
		Scopes(scope.Filter("company_id")).
		Where("user_id = ? AND role_id = ? AND is_active = ?", userID, role.ID, true).
		Updates(map[string]any{
			"is_active":  false,
			"revoked_at": now,
			"revoked_by": optionalString(revokerID),
			"updated_at": now,
		})
	if result.Error != nil {
		return storageError("grant service: revoke grants", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrGrantNotFound
	}

	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    revokerID,
		CompanyID:  scope.CompanyID,
		Action:     AuditGrantRevoke,
		EntityType: auditEntityGrant,
		EntityID:   userID + ":" + role.ID,
		Metadata: map[string]any{
			"user_id":        userID,
			"role_id":        role.ID,
			"role_name":      role.Name,
			"grants_revoked": result.RowsAffected,
		},
	})

	return nil
}

// ListGrantsForUser returns the user's grants in the order they were issued.
// Without includeInactive only live grants are returned. A company scope limits
// the result to that company's grants and requires the user to belong to the
// company or hold an active grant in it.
func (s *GrantService) ListGrantsForUser(ctx context.Context, scope permissions.Scope, userID string, includeInactive bool) ([]models.UserRoleGrant, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if !isValidID(userID) {
		if !scope.All {
			return nil, permissions.ErrOutOfScope
		}
		return nil, ErrUserNotFound
	}

	db := s.db.WithContext(ctx)
	if !scope.All {
		visible, err := userInScope(db, scope, userID)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, permissions.ErrOutOfScope
		}
	}

	query := db.Preload("Role").Scopes(scope.Filter("company_id")).Where("user_id = ?", userID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var grants []models.UserRoleGrant
	if err := query.Order("granted_at ASC").Find(&grants).Error; err != nil {
		return nil, storageError("grant service: list grants", err)
	}

	if !includeInactive {
		now := s.now()
		live := grants[:0]
		for _, grant := range grants {
			if grant.Live(now) {
				live = append(live, grant)
			}
		}
		grants = live
	}
	return grants, nil
}

// userInScope reports whether the user belongs to the scope's company or holds
// an active grant in it. Missing users are reported as not visible.
func userInScope(db *gorm.DB, scope permissions.Scope, userID string) (bool, error) {
	if scope.All {
		return true, nil
	}
	if scope.CompanyID == "" {
		return false, nil
	}

	var user models.User
	if err := db.Select("id", "company_id").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, storageError("grant service: load user", err)
	}
	if user.CompanyID != nil && *user.CompanyID == scope.CompanyID {
		return true, nil
	}

	var count int64
	if err := db.Model(&models.UserRoleGrant{}).
		Where("user_id = ? AND company_id = ? AND is_active = ?", userID, scope.CompanyID, true).
		Count(&count).Error; err != nil {
		return false, storageError("grant service: check user scope", err)
	}
	return count > 0, nil
}

// ExpireGrants deactivates active grants whose expiry has passed at now.
func (s *GrantService) ExpireGrants(ctx context.Context, now time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Model(&models.UserRoleGrant{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Updates(map[string]any{
			"is_active":  false,
			"revoked_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, storageError("grant service: expire grants", result.Error)
	}

	if result.RowsAffected > 0 {
		recordAudit(s.audit, ctx, AuditEvent{
			Action:     AuditGrantExpire,
			EntityType: auditEntityGrant,
			Metadata: map[string]any{
				"grants_expired": result.RowsAffected,
			},
		})
	}
	return result.RowsAffected, nil
}

// checkGranter applies the privilege rules for issuing a grant. An empty
// granter denotes an internal workflow and is not checked.
func (s *GrantService) checkGranter(ctx context.Context, granterID string, role *models.Role, companyID *string) error {
	granterID = strings.TrimSpace(granterID)
	if granterID == "" {
		return nil
	}

	granter, err := s.loader.Load(ctx, granterID, "")
	if err != nil {
		return err
	}
	if err := checkGrantPrivileges(granter, role); err != nil {
		return err
	}

	scope, err := permissions.ResolveScope(granter)
	if err != nil {
		return err
	}
	if scope.All {
		return nil
	}
	if companyID == nil || !permissions.EnforceScope(scope, *companyID) {
		return permissions.ErrOutOfScope
	}
	return nil
}

// checkGrantPrivileges reports whether granter may hand out role. SUPER_ADMIN
// and ADMIN require a super admin; other system roles require an administrator.
func checkGrantPrivileges(granter *permissions.Principal, role *models.Role) error {
	if granter == nil {
		return apperrors.ErrForbidden
	}
	if isPrivilegedRole(role.Name) && !granter.HasRole(permissions.RoleSuperAdmin) {
		return ErrPrivilegedRoleGrant
	}
	if role.IsSystem && !granter.HasRole(permissions.RoleSuperAdmin) && !granter.HasRole(permissions.RoleAdmin) {
		return ErrSystemRoleGrant
	}
	return nil
}

func isPrivilegedRole(name string) bool {
	return name == permissions.RoleSuperAdmin || name == permissions.RoleAdmin
}

func findRole(db *gorm.DB, id string) (*models.Role, error) {
	if !isValidID(id) {
		return nil, ErrRoleNotFound
	}
	var role models.Role
	if err := db.First(&role, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, storageError("grant service: load role", err)
	}
	return &role, nil
}
