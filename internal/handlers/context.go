package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/middleware"
	"github.com/jobhive/jobhive/internal/permissions"
	"github.com/jobhive/jobhive/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

func actorID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserIDKey)
}

// companyScope returns the scope resolved by the authorization middleware.
// A route mounted without a scoped requirement is denied rather than unfiltered.
func companyScope(c *gin.Context) (permissions.Scope, bool) {
	scope, ok := middleware.ScopeFromContext(c)
	if !ok {
		response.Error(c, permissions.ErrNoAssignedCompany)
		return permissions.Scope{}, false
	}
	return scope, true
}
