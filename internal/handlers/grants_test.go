package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobhive/jobhive/internal/handlers/testutil"
	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/internal/permissions"
)

type grantPayload struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	RoleID    string  `json:"role_id"`
	CompanyID *string `json:"company_id"`
	IsActive  bool    `json:"is_active"`
	Role      *struct {
		Name string `json:"name"`
	} `json:"role"`
}

func TestGrantHandler_GrantListRevoke(t *testing.T) {
	env := testutil.NewEnv(t)
	admin, token := env.UserWithRole(permissions.RoleSuperAdmin, nil)
	target := env.CreateUser()
	company := env.CreateCompany("Acme")
	employer := env.Role(permissions.RoleEmployer)

	created := env.Request(http.MethodPost, "/api/users/"+target.ID+"/grants", map[string]any{
		"role_id":    employer.ID,
		"company_id": company.ID,
	}, token)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	var grant grantPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, created).Data, &grant)
	require.Equal(t, target.ID, grant.UserID)
	require.NotNil(t, grant.CompanyID)
	require.Equal(t, company.ID, *grant.CompanyID)
	require.True(t, grant.IsActive)

	list := env.Request(http.MethodGet, "/api/users/"+target.ID+"/grants", nil, token)
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())
	var grants []grantPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &grants)
	require.Len(t, grants, 1)
	require.NotNil(t, grants[0].Role)
	require.Equal(t, permissions.RoleEmployer, grants[0].Role.Name)

	revoke := env.Request(http.MethodDelete, "/api/users/"+target.ID+"/grants/"+employer.ID, nil, token)
	require.Equal(t, http.StatusOK, revoke.Code, revoke.Body.String())

	again := env.Request(http.MethodDelete, "/api/users/"+target.ID+"/grants/"+employer.ID, nil, token)
	requireError(t, again, http.StatusNotFound, "GRANT_NOT_FOUND")

	list = env.Request(http.MethodGet, "/api/users/"+target.ID+"/grants?include_inactive=true", nil, token)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &grants)
	require.Len(t, grants, 1)
	require.False(t, grants[0].IsActive)

	var stored models.UserRoleGrant
	require.NoError(t, env.DB.First(&stored, "id = ?", grant.ID).Error)
	require.NotNil(t, stored.RevokedBy)
	require.Equal(t, admin.ID, *stored.RevokedBy)
}

func TestGrantHandler_Validation(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.UserWithRole(permissions.RoleSuperAdmin, nil)
	target := env.CreateUser()
	moderator := env.Role(permissions.RoleModerator)

	resp := env.Request(http.MethodPost, "/api/users/"+target.ID+"/grants", map[string]any{}, token)
	payload := requireError(t, resp, http.StatusBadRequest, "BAD_REQUEST")
	require.Contains(t, payload.Error.Message, "role id is required")

	resp = env.Request(http.MethodPost, "/api/users/"+target.ID+"/grants", map[string]any{
		"role_id":    moderator.ID,
		"company_id": "acme",
	}, token)
	requireError(t, resp, http.StatusBadRequest, "BAD_REQUEST")

	resp = env.Request(http.MethodPost, "/api/users/"+target.ID+"/grants", map[string]any{
		"role_id":    moderator.ID,
		"expires_at": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	}, token)
	requireError(t, resp, http.StatusBadRequest, "BAD_REQUEST")

	resp = env.Request(http.MethodPost, "/api/users/00000000-0000-0000-0000-000000000000/grants", map[string]any{
		"role_id": moderator.ID,
	}, token)
	requireError(t, resp, http.StatusNotFound, "USER_NOT_FOUND")
}

func TestGrantHandler_PrivilegedRolesNeedSuperAdmin(t *testing.T) {
	env := testutil.NewEnv(t)
	_, superToken := env.UserWithRole(permissions.RoleSuperAdmin, nil)

	created := env.Request(http.MethodPost, "/api/roles", map[string]any{
		"name":           "ROLE_ASSIGNER",
		"permission_ids": permissionIDs(t, env, permissions.AssignRoles),
	}, superToken)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

	_, assignerToken := env.UserWithRole("ROLE_ASSIGNER", nil)
	target := env.CreateUser()

	resp := env.Request(http.MethodPost, "/api/users/"+target.ID+"/grants", map[string]any{
		"role_id": env.Role(permissions.RoleAdmin).ID,
	}, assignerToken)
	payload := requireError(t, resp, http.StatusForbidden, "FORBIDDEN")
	require.Contains(t, payload.Error.Message, "only SUPER_ADMIN")
}

func TestGrantHandler_ListIsCompanyScoped(t *testing.T) {
	env := testutil.NewEnv(t)
	acme := env.CreateCompany("Acme")
	globex := env.CreateCompany("Globex")

	env.CustomRole("ACME_ROLE_MANAGER", permissions.AssignRoles)
	manager := env.CreateUser()
	env.Grant(manager.ID, "ACME_ROLE_MANAGER", &acme.ID)
	token := env.Token(manager.ID, "")

	foreign := env.CreateUser()
	env.Grant(foreign.ID, permissions.RoleEmployer, &globex.ID)

	denied := env.Request(http.MethodGet, "/api/users/"+foreign.ID+"/grants?include_inactive=true", nil, token)
	deniedPayload := requireError(t, denied, http.StatusForbidden, "FORBIDDEN")
	require.NotContains(t, denied.Body.String(), globex.ID)

	missing := env.Request(http.MethodGet, "/api/users/00000000-0000-0000-0000-000000000000/grants", nil, token)
	missingPayload := requireError(t, missing, http.StatusForbidden, "FORBIDDEN")
	require.Equal(t, deniedPayload.Error.Message, missingPayload.Error.Message)

	local := env.CreateUser()
	env.Grant(local.ID, permissions.RoleEmployer, &acme.ID)
	env.Grant(local.ID, permissions.RoleModerator, &globex.ID)

	resp := env.Request(http.MethodGet, "/api/users/"+local.ID+"/grants", nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var grants []grantPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &grants)
	require.Len(t, grants, 1)
	require.Equal(t, acme.ID, *grants[0].CompanyID)
	require.NotContains(t, resp.Body.String(), globex.ID)
}
