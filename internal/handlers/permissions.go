package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/services"
	"github.com/jobhive/jobhive/pkg/response"
)

type PermissionHandler struct {
	svc *services.PermissionService
}

func NewPermissionHandler(svc *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{svc: svc}
}

type createPermissionRequest struct {
	Code        string `json:"code" validate:"required,max=100,permcode"`
	Resource    string `json:"resource" validate:"required,max=100"`
	Action      string `json:"action" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"is_active"`
}

// GET /api/permissions
func (h *PermissionHandler) List(c *gin.Context) {
	perms, err := h.svc.ListPermissions(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// GET /api/permissions/:id
func (h *PermissionHandler) Get(c *gin.Context) {
	perm, err := h.svc.GetPermission(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perm)
}

// POST /api/permissions
func (h *PermissionHandler) Create(c *gin.Context) {
	var req createPermissionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	perm, err := h.svc.CreatePermission(requestContext(c), services.CreatePermissionInput{
		Code:        req.Code,
		Resource:    req.Resource,
		Action:      req.Action,
		Description: req.Description,
		IsActive:    req.IsActive,
		ActorID:     actorID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perm)
}
