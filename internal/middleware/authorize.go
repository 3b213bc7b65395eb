package middleware

import (
	"context"
	stdErrors "errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jobhive/jobhive/internal/permissions"
	"github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/logger"
	"github.com/jobhive/jobhive/pkg/metrics"
	"github.com/jobhive/jobhive/pkg/response"
)

const (
	CtxPrincipalKey = "principal"
	CtxScopeKey     = "companyScope"
)

// PrincipalLoader builds the caller's principal from live grants.
type PrincipalLoader interface {
	Load(ctx context.Context, userID, roleHint string) (*permissions.Principal, error)
}

// Require loads the caller's principal and evaluates requirement against it.
// Company-scoped requirements also resolve the caller's scope. Any failure to
// load or resolve denies the request.
func Require(loader PrincipalLoader, requirement permissions.Requirement) gin.HandlerFunc {
	label := requirement.String()
	log := logger.WithModule("authz")

	return func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		if userID == "" {
			metrics.AuthorizationDecisions.WithLabelValues(label, "deny").Inc()
			response.Abort(c, errors.ErrUnauthorized)
			return
		}
		roleHint := c.GetString(CtxRoleHintKey)

		principal, err := loader.Load(c.Request.Context(), userID, roleHint)
		if err != nil {
			metrics.AuthorizationDecisions.WithLabelValues(label, "error").Inc()
			log.Warn("principal load failed",
				zap.String("user_id", userID),
				zap.String("requirement", label),
				zap.Error(err),
			)
			response.Abort(c, err)
			return
		}

		decision := permissions.Authorize(principal, requirement)
		if !decision.Allowed {
			metrics.AuthorizationDecisions.WithLabelValues(label, "deny").Inc()
			log.Info("authorization denied",
				zap.String("user_id", userID),
				zap.String("role_hint", roleHint),
				zap.String("requirement", label),
				zap.String("reason", string(decision.Reason)),
				zap.Strings("missing", decision.Missing),
				zap.String("path", c.FullPath()),
			)
			response.Abort(c, errors.NewForbidden(decision.Message()))
			return
		}

		if requirement.CompanyScoped {
			scope, err := permissions.ResolveScope(principal)
			metrics.ScopeResolutions.WithLabelValues(scopeOutcome(scope, err)).Inc()
			if err != nil {
				metrics.AuthorizationDecisions.WithLabelValues(label, "deny").Inc()
				log.Info("company scope denied",
					zap.String("user_id", userID),
					zap.String("requirement", label),
					zap.Error(err),
				)
				response.Abort(c, err)
				return
			}
			c.Set(CtxScopeKey, scope)
		}

		metrics.AuthorizationDecisions.WithLabelValues(label, "allow").Inc()
		c.Set(CtxPrincipalKey, principal)
		c.Next()
	}
}

// PrincipalFromContext returns the principal stored by Require.
func PrincipalFromContext(c *gin.Context) (*permissions.Principal, bool) {
	value, ok := c.Get(CtxPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*permissions.Principal)
	return principal, ok && principal != nil
}

// ScopeFromContext returns the company scope resolved by Require.
func ScopeFromContext(c *gin.Context) (permissions.Scope, bool) {
	value, ok := c.Get(CtxScopeKey)
	if !ok {
		return permissions.Scope{}, false
	}
	scope, ok := value.(permissions.Scope)
	return scope, ok
}

func scopeOutcome(scope permissions.Scope, err error) string {
	switch {
	case err == nil && scope.All:
		return "all"
	case err == nil:
		return "company"
	case stdErrors.Is(err, permissions.ErrAmbiguousScope):
		return "ambiguous"
	default:
		return "no_company"
	}
}
