package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/internal/permissions"
	"github.com/jobhive/jobhive/pkg/crypto"
	apperrors "github.com/jobhive/jobhive/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUserEmailExists reports a duplicate email address.
	ErrUserEmailExists = apperrors.New("USER_EXISTS", "email already exists", http.StatusConflict)
)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	UserType  string
	CompanyID *string
	ActorID   string
}

// CreateCompanyAdminInput describes a company administrator to provision.
// RoleName defaults to ADMIN. A nil Granter denotes an internal workflow and
// skips the grant privilege rules.
type CreateCompanyAdminInput struct {
	CompanyID string
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleName  string
	GranterID string
	Granter   *permissions.Principal
}

// UserService manages the accounts that receive role grants.
type UserService struct {
	db    *gorm.DB
	audit AuditSink
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, audit AuditSink) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, audit: audit}, nil
}

// CreateUser provisions a user with a hashed password.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := newUser(input)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUserEmailExists
		}
		return nil, storageError("user service: create user", err)
	}

	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    input.ActorID,
		Action:     AuditUserCreate,
		EntityType: auditEntityUser,
		EntityID:   user.ID,
		Metadata: map[string]any{
			"email":     user.Email,
			"user_type": user.UserType,
		},
	})

	return user, nil
}

// GetUser loads a user by identifier.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)
	return findUser(s.db.WithContext(ctx), strings.TrimSpace(id))
}

// CreateCompanyAdmin creates a user and issues its company-scoped grant in the
// same transaction. The company must be visible in scope.
func (s *UserService) CreateCompanyAdmin(ctx context.Context, scope permissions.Scope, input CreateCompanyAdminInput) (*models.User, *models.UserRoleGrant, error) {
	ctx = ensureContext(ctx)

	companyID := strings.TrimSpace(input.CompanyID)
	if !permissions.EnforceScope(scope, companyID) {
		return nil, nil, permissions.ErrOutOfScope
	}

	roleName := strings.TrimSpace(input.RoleName)
	if roleName == "" {
		roleName = permissions.RoleAdmin
	}

	user, err := newUser(CreateUserInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		UserType:  models.UserTypeAdmin,
		CompanyID: &companyID,
	})
	if err != nil {
		return nil, nil, err
	}

	var (
		grant *models.UserRoleGrant
		role  models.Role
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findCompany(tx, companyID); err != nil {
			if errors.Is(err, ErrCompanyNotFound) && !scope.All {
				return permissions.ErrOutOfScope
			}
			return err
		}

		if err := tx.First(&role, "name = ?", roleName).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return storageError("user service: load role", err)
		}
		if !role.IsActive {
			return ErrInactiveRoleGrant
		}
		if role.Name == permissions.RoleSuperAdmin {
			return ErrCompanyScopedSuperAdmin
		}
		if input.Granter != nil {
			if err := checkGrantPrivileges(input.Granter, &role); err != nil {
				return err
			}
		}

		if err := tx.Create(user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrUserEmailExists
			}
			return storageError("user service: create user", err)
		}

		grant = &models.UserRoleGrant{
			UserID:    user.ID,
			RoleID:    role.ID,
			CompanyID: &companyID,
			IsActive:  true,
			GrantedBy: optionalString(input.GranterID),
			GrantedAt: time.Now(),
		}
		if err := tx.Create(grant).Error; err != nil {
			return storageError("user service: create grant", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	grant.Role = &role

	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    input.GranterID,
		Action:     AuditCompanyAdminCreate,
		EntityType: auditEntityUser,
		EntityID:   user.ID,
		Metadata: map[string]any{
			"email":      user.Email,
			"company_id": companyID,
		},
	})
	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    input.GranterID,
		Action:     AuditGrantCreate,
		EntityType: auditEntityGrant,
		EntityID:   grant.ID,
		Metadata: map[string]any{
			"user_id":    user.ID,
			"role_id":    role.ID,
			"role_name":  role.Name,
			"company_id": companyID,
		},
	})

	return user, grant, nil
}

func newUser(input CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	userType := strings.TrimSpace(input.UserType)
	switch userType {
	case "":
		userType = models.UserTypeCandidate
	case models.UserTypeAdmin, models.UserTypeEmployer, models.UserTypeCandidate:
	default:
		return nil, apperrors.NewBadRequest("unknown user type")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		UserType:     userType,
		IsActive:     true,
	}
	if input.CompanyID != nil {
		user.CompanyID = optionalString(*input.CompanyID)
	}
	return user, nil
}

func findUser(db *gorm.DB, id string) (*models.User, error) {
	if !isValidID(id) {
		return nil, ErrUserNotFound
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("user service: load user", err)
	}
	return &user, nil
}
