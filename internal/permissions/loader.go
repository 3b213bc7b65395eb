package permissions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/models"
	apperrors "github.com/jobhive/jobhive/pkg/errors"
)

// DefaultLoadTimeout bounds the storage read performed per request.
const DefaultLoadTimeout = 3 * time.Second

// Loader builds principals from the grant store.
type Loader struct {
	db      *gorm.DB
	timeout time.Duration
	now     func() time.Time
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithLoadTimeout overrides the per-load storage deadline.
func WithLoadTimeout(timeout time.Duration) LoaderOption {
	return func(l *Loader) {
		if timeout > 0 {
			l.timeout = timeout
		}
	}
}

// WithClock overrides the clock used to evaluate grant expiry.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLoader constructs a principal loader backed by db.
func NewLoader(db *gorm.DB, opts ...LoaderOption) (*Loader, error) {
	if db == nil {
		return nil, errors.New("principal loader: db is required")
	}
	loader := &Loader{db: db, timeout: DefaultLoadTimeout, now: time.Now}
	for _, opt := range opts {
		opt(loader)
	}
	return loader, nil
}

// Load reads the user's active, unexpired grants of active roles and the active
// permissions those roles confer. Any storage failure is reported as transient
// so callers deny the request.
func (l *Loader) Load(ctx context.Context, userID, roleHint string) (*Principal, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if _, err := uuid.Parse(userID); err != nil {
		return NewPrincipal(userID, roleHint, nil), nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	now := l.now()
	var grants []models.UserRoleGrant
	err := l.db.WithContext(ctx).
		Joins("JOIN roles ON roles.id = user_role_grants.role_id AND roles.is_active = ?", true).
		Preload("Role").
		Preload("Role.Permissions", "is_active = ?", true).
		Where("user_role_grants.user_id = ? AND user_role_grants.is_active = ?", userID, true).
		Where("user_role_grants.expires_at IS NULL OR user_role_grants.expires_at > ?", now).
		Order("user_role_grants.granted_at ASC").
		Find(&grants).Error
	if err != nil {
		return nil, apperrors.NewTransient(err)
	}

	views := make([]GrantView, 0, len(grants))
	for _, grant := range grants {
		if grant.Role == nil {
			continue
		}
		views = append(views, GrantView{
			GrantID:     grant.ID,
			RoleID:      grant.RoleID,
			RoleName:    grant.Role.Name,
			CompanyID:   grant.CompanyID,
			Permissions: grant.Role.PermissionCodes(),
		})
	}

	return NewPrincipal(userID, roleHint, views), nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
