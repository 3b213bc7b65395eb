package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/handlers"
	"github.com/jobhive/jobhive/internal/middleware"
	"github.com/jobhive/jobhive/internal/permissions"
)

// Route binds an endpoint under /api to the requirement its guard enforces.
type Route struct {
	Method      string
	Path        string
	Requirement permissions.Requirement
	Handler     gin.HandlerFunc
}

type routeHandlers struct {
	permissions *handlers.PermissionHandler
	roles       *handlers.RoleHandler
	grants      *handlers.GrantHandler
	companies   *handlers.CompanyHandler
	jobs        *handlers.JobHandler
	audit       *handlers.AuditHandler
	security    *handlers.SecurityHandler
}

var (
	manageRoles = permissions.RequiresPermission(permissions.ManageRoles)
	assignRoles = permissions.RequiresPermission(permissions.AssignRoles)
	superAdmin  = permissions.RequiresAnyRole(permissions.RoleSuperAdmin)
	viewCompany = permissions.RequiresPermission(permissions.ViewCompany).Scoped()
	viewJob     = permissions.RequiresPermission(permissions.ViewJob).Scoped()
	moderateJob = permissions.RequiresPermission(permissions.ModerateJob).Scoped()
)

func routeTable(h routeHandlers) []Route {
	return []Route{
		{http.MethodGet, "/roles", manageRoles, h.roles.List},
		{http.MethodGet, "/roles/:id", manageRoles, h.roles.Get},
		{http.MethodPost, "/roles", manageRoles, h.roles.Create},
		{http.MethodPut, "/roles/:id", manageRoles, h.roles.Update},
		{http.MethodDelete, "/roles/:id", manageRoles.And(superAdmin), h.roles.Delete},
		{http.MethodPut, "/roles/:id/permissions", manageRoles, h.roles.SetPermissions},
		{http.MethodDelete, "/roles/:id/permissions", manageRoles, h.roles.RemovePermissions},

		{http.MethodGet, "/permissions", manageRoles, h.permissions.List},
		{http.MethodGet, "/permissions/:id", manageRoles, h.permissions.Get},
		{http.MethodPost, "/permissions", manageRoles.And(superAdmin), h.permissions.Create},

		{http.MethodGet, "/users/:id/grants", assignRoles.Scoped(), h.grants.List},
		{http.MethodPost, "/users/:id/grants", assignRoles, h.grants.Grant},
		{http.MethodDelete, "/users/:id/grants/:roleId", assignRoles, h.grants.Revoke},

		{http.MethodGet, "/me/permissions", permissions.Authenticated(), handlers.MyPermissions},

		{http.MethodPost, "/companies", permissions.RequiresPermission(permissions.CreateCompany).And(superAdmin), h.companies.Create},
		{http.MethodGet, "/companies", viewCompany, h.companies.List},
		{http.MethodGet, "/companies/:id", viewCompany, h.companies.Get},
		{http.MethodPost, "/companies/:id/admins", permissions.RequiresPermission(permissions.CreateAdmin).Scoped(), h.companies.CreateAdmin},

		{http.MethodGet, "/jobs", viewJob, h.jobs.List},
		{http.MethodGet, "/jobs/stats", viewJob, h.jobs.Stats},
		{http.MethodGet, "/jobs/:id", viewJob, h.jobs.Get},
		{http.MethodPost, "/jobs/:id/moderate", moderateJob, h.jobs.Moderate},
		{http.MethodPost, "/jobs/:id/flag", moderateJob, h.jobs.Flag},
		{http.MethodPost, "/jobs/bulk-moderate", moderateJob, h.jobs.BulkModerate},

		{
			http.MethodGet, "/audit",
			permissions.RequiresPermission(permissions.ViewAuditLogs).And(permissions.RequiresAnyRole(permissions.RoleSuperAdmin, permissions.RoleAdmin)).Scoped(),
			h.audit.List,
		},
		{http.MethodGet, "/security/audit", permissions.RequiresPermission(permissions.ManageSettings).And(superAdmin), h.security.Audit},
	}
}

func registerRoutes(group *gin.RouterGroup, loader middleware.PrincipalLoader, routes []Route) {
	for _, route := range routes {
		group.Handle(route.Method, route.Path, middleware.Require(loader, route.Requirement), route.Handler)
	}
}
