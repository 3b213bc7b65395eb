package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/services"
	"github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/response"
)

type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	scope, ok := companyScope(c)
	if !ok {
		return
	}

	page, perPage := paginationParams(c)

	filters := services.AuditFilters{
		ActorID:    c.Query("actor_id"),
		Action:     c.Query("action"),
		Result:     c.Query("result"),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
	}
	for key, target := range map[string]**time.Time{"since": &filters.Since, "until": &filters.Until} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, errors.NewBadRequest(key+" must be an RFC3339 timestamp"))
			return
		}
		*target = &parsed
	}

	logs, total, err := h.svc.List(requestContext(c), scope, services.AuditListOptions{Page: page, PageSize: perPage, Filters: filters})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, logs, response.NewMeta(page, perPage, total))
}
