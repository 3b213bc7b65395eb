package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/middleware"
	"github.com/jobhive/jobhive/internal/permissions"
	"github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/response"
)

type grantSummary struct {
	RoleName  string  `json:"role"`
	CompanyID *string `json:"company_id"`
}

type effectivePermissions struct {
	UserID      string         `json:"user_id"`
	Roles       []string       `json:"roles"`
	Permissions []string       `json:"permissions"`
	Scope       *string        `json:"scope"`
	ScopeError  string         `json:"scope_error,omitempty"`
	Grants      []grantSummary `json:"grants"`
}

// GET /api/me/permissions
func MyPermissions(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	payload := effectivePermissions{
		UserID:      principal.UserID,
		Roles:       principal.Roles(),
		Permissions: principal.Permissions(),
		Grants:      make([]grantSummary, 0, len(principal.Grants)),
	}
	for _, grant := range principal.Grants {
		payload.Grants = append(payload.Grants, grantSummary{RoleName: grant.RoleName, CompanyID: grant.CompanyID})
	}

	if scope, err := permissions.ResolveScope(principal); err != nil {
		payload.ScopeError = errors.FromError(err).Message
	} else {
		rendered := scope.String()
		payload.Scope = &rendered
	}

	response.Success(c, http.StatusOK, payload)
}
