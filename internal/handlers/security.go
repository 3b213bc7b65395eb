package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/security"
	"github.com/jobhive/jobhive/pkg/response"
)

// SecurityHandler exposes the deployment posture audit.
type SecurityHandler struct {
	posture *security.PostureService
}

// NewSecurityHandler constructs a SecurityHandler.
func NewSecurityHandler(posture *security.PostureService) *SecurityHandler {
	return &SecurityHandler{posture: posture}
}

// Audit GET /api/security/audit
func (h *SecurityHandler) Audit(c *gin.Context) {
	response.Success(c, http.StatusOK, h.posture.Run(requestContext(c)))
}
