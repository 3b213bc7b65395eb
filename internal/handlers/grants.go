package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/services"
	"github.com/jobhive/jobhive/pkg/response"
)

type GrantHandler struct {
	svc *services.GrantService
}

func NewGrantHandler(svc *services.GrantService) *GrantHandler {
	return &GrantHandler{svc: svc}
}

type grantRoleRequest struct {
	RoleID    string     `json:"role_id" validate:"required"`
	CompanyID *string    `json:"company_id" validate:"omitempty,uuid"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// GET /api/users/:id/grants
func (h *GrantHandler) List(c *gin.Context) {
	scope, ok := companyScope(c)
	if !ok {
		return
	}

	grants, err := h.svc.ListGrantsForUser(requestContext(c), scope, c.Param("id"), c.Query("include_inactive") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, grants)
}

// POST /api/users/:id/grants
func (h *GrantHandler) Grant(c *gin.Context) {
	var req grantRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	grant, err := h.svc.GrantRole(requestContext(c), services.GrantRoleInput{
		GranterID: actorID(c),
		UserID:    c.Param("id"),
		RoleID:    req.RoleID,
		CompanyID: req.CompanyID,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, grant)
}

// DELETE /api/users/:id/grants/:roleId
func (h *GrantHandler) Revoke(c *gin.Context) {
	err := h.svc.RevokeRole(requestContext(c), services.RevokeRoleInput{
		RevokerID: actorID(c),
		UserID:    c.Param("id"),
		RoleID:    c.Param("roleId"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}
