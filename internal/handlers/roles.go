package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/services"
	"github.com/jobhive/jobhive/pkg/response"
)

type RoleHandler struct {
	svc *services.RoleService
}

func NewRoleHandler(svc *services.RoleService) *RoleHandler {
	return &RoleHandler{svc: svc}
}

type createRoleRequest struct {
	Name          string   `json:"name" validate:"required,max=100"`
	Description   string   `json:"description" validate:"max=500"`
	IsActive      *bool    `json:"is_active"`
	PermissionIDs []string `json:"permission_ids"`
}

// updateRoleRequest distinguishes an absent permission_ids (untouched) from an empty one (clear).
type updateRoleRequest struct {
	Name          *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Description   *string   `json:"description" validate:"omitempty,max=500"`
	IsActive      *bool     `json:"is_active"`
	PermissionIDs *[]string `json:"permission_ids"`
}

type rolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" validate:"required"`
}

// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.svc.ListRoles(requestContext(c), services.RoleListOptions{
		IncludeInactive: c.Query("include_inactive") == "true",
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// GET /api/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.svc.GetRole(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var req createRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, err := h.svc.CreateRole(requestContext(c), services.CreateRoleInput{
		Name:           req.Name,
		Description:    req.Description,
		IsActive:       req.IsActive,
		PermissionRefs: req.PermissionIDs,
		ActorID:        actorID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// PUT /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	var req updateRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		ActorID:     actorID(c),
	}
	if req.PermissionIDs != nil {
		input.PermissionRefs = append([]string{}, (*req.PermissionIDs)...)
	}

	role, err := h.svc.UpdateRole(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteRole(requestContext(c), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// PUT /api/roles/:id/permissions
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	var req rolePermissionsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, err := h.svc.AssignPermissions(requestContext(c), c.Param("id"), req.PermissionIDs, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id/permissions
func (h *RoleHandler) RemovePermissions(c *gin.Context) {
	var req rolePermissionsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, err := h.svc.RemovePermissions(requestContext(c), c.Param("id"), req.PermissionIDs, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}
