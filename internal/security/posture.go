package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/app"
	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/internal/permissions"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

const (
	minSecretBytes         = 32
	recommendedSecretBytes = 48
	maxRecommendedTokenTTL = time.Hour
)

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Failed reports whether any check failed.
func (r Result) Failed() bool {
	return r.Summary[string(StatusFail)] > 0
}

// PostureService evaluates the deployment's access-control posture.
type PostureService struct {
	db  *gorm.DB
	cfg *app.Config
	now func() time.Time
}

// NewPostureService constructs the service. Missing inputs degrade the
// affected checks to warnings.
func NewPostureService(db *gorm.DB, cfg *app.Config) *PostureService {
	return &PostureService{db: db, cfg: cfg, now: time.Now}
}

// WithClock overrides the clock used for grant expiry and results.
func (s *PostureService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes every check.
func (s *PostureService) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkSuperAdmin(ctx),
		s.checkJWTSecret(),
		s.checkTokenTTL(),
		s.checkRateLimit(),
		s.checkRedisTLS(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

// checkSuperAdmin requires at least one active user holding a live
// platform-wide SUPER_ADMIN grant.
func (s *PostureService) checkSuperAdmin(ctx context.Context) Check {
	const id = "super_admin_present"
	if s.db == nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Database unavailable; unable to confirm a super admin exists.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.UserRoleGrant{}).
		Joins("JOIN roles ON roles.id = user_role_grants.role_id").
		Joins("JOIN users ON users.id = user_role_grants.user_id").
		Where("roles.name = ?", permissions.RoleSuperAdmin).
		Where("user_role_grants.is_active = ? AND users.is_active = ?", true, true).
		Where("user_role_grants.company_id IS NULL").
		Where("user_role_grants.expires_at IS NULL OR user_role_grants.expires_at > ?", s.now()).
		Distinct("user_role_grants.user_id").
		Count(&count).Error
	if err != nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not verify super admins: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	if count == 0 {
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "No active user holds a platform-wide SUPER_ADMIN grant.",
			Remediation: "Grant SUPER_ADMIN to an active user so roles and grants remain manageable.",
		}
	}

	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: "Super admin present.",
		Details: map[string]any{"count": count},
	}
}

func (s *PostureService) checkJWTSecret() Check {
	const id = "jwt_secret_strength"
	if s.cfg == nil {
		return configMissing(id)
	}

	length := len(strings.TrimSpace(s.cfg.Auth.JWT.Secret))
	switch {
	case length == 0:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "Missing JWT signing secret.",
			Remediation: "Provide a cryptographically secure signing secret (>= 32 bytes).",
		}
	case length < minSecretBytes:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
		}
	case length < recommendedSecretBytes:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider increasing to 48+ bytes.", length),
			Remediation: "Increase the length of JOBHIVE_AUTH_JWT_SECRET to at least 48 bytes.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      id,
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

// checkTokenTTL flags long-lived access tokens. Grants are re-read on every
// request, so only identity outlives a revocation.
func (s *PostureService) checkTokenTTL() Check {
	const id = "access_token_ttl"
	if s.cfg == nil {
		return configMissing(id)
	}

	ttl := s.cfg.Auth.JWT.TTL
	if ttl <= 0 {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Access token TTL is not configured; using default duration.",
			Remediation: "Set JOBHIVE_AUTH_JWT_ACCESS_TOKEN_TTL to control token lifetime.",
		}
	}
	if ttl > maxRecommendedTokenTTL {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Access token TTL (%s) exceeds recommended maximum (%s).", ttl, maxRecommendedTokenTTL),
			Remediation: "Reduce the access token TTL to an hour or less.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}

	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: fmt.Sprintf("Access token TTL is %s.", ttl),
		Details: map[string]any{"ttl": ttl.String()},
	}
}

func (s *PostureService) checkRateLimit() Check {
	const id = "rate_limit_enabled"
	if s.cfg == nil {
		return configMissing(id)
	}

	limit := s.cfg.RateLimit
	if !limit.Enabled {
		status := StatusWarn
		if s.cfg.Server.Production {
			status = StatusFail
		}
		return Check{
			ID:          id,
			Status:      status,
			Message:     "Request rate limiting is disabled.",
			Remediation: "Set JOBHIVE_RATE_LIMIT_ENABLED=true.",
		}
	}

	backend := strings.ToLower(strings.TrimSpace(limit.Backend))
	if backend == "" {
		backend = "memory"
	}
	if backend == "memory" && s.cfg.Server.Production {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Rate limits are kept in process memory and are not shared between instances.",
			Remediation: "Use the redis or database rate limit backend when running more than one instance.",
			Details:     map[string]any{"backend": backend},
		}
	}

	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: fmt.Sprintf("Rate limiting enabled (%d requests per %s, %s backend).", limit.Requests, limit.Window, backend),
		Details: map[string]any{"backend": backend},
	}
}

func (s *PostureService) checkRedisTLS() Check {
	const id = "redis_tls"
	if s.cfg == nil {
		return configMissing(id)
	}

	redis := s.cfg.Cache.Redis
	switch {
	case !redis.Enabled:
		return Check{ID: id, Status: StatusPass, Message: "Redis disabled."}
	case !redis.TLS && s.cfg.Server.Production:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Redis connection is not encrypted.",
			Remediation: "Set JOBHIVE_CACHE_REDIS_TLS=true.",
		}
	default:
		return Check{ID: id, Status: StatusPass, Message: "Redis connection settings acceptable."}
	}
}

func configMissing(id string) Check {
	return Check{
		ID:          id,
		Status:      StatusWarn,
		Message:     "Configuration not loaded; check skipped.",
		Remediation: "Load configuration before running the security audit.",
	}
}
