package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/services"
	"github.com/jobhive/jobhive/pkg/response"
)

type JobHandler struct {
	svc *services.JobService
}

func NewJobHandler(svc *services.JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

type moderateJobRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Reason   string `json:"reason" validate:"max=1000"`
}

type flagJobRequest struct {
	Reason   string `json:"reason" validate:"required,max=1000"`
	Category string `json:"category" validate:"max=100"`
}

type bulkModerateRequest struct {
	JobIDs []string `json:"job_ids" validate:"required,min=1,max=100"`
	Action string   `json:"action" validate:"required,oneof=approve reject"`
	Reason string   `json:"reason" validate:"max=1000"`
}

// GET /api/jobs
func (h *JobHandler) List(c *gin.Context) {
	scope, ok := companyScope(c)
	if !ok {
		return
	}

	page, perPage := paginationParams(c)
	jobs, total, err := h.svc.ListJobs(requestContext(c), scope, services.JobFilters{
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, jobs, response.NewMeta(page, perPage, total))
}

// GET /api/jobs/stats
func (h *JobHandler) Stats(c *gin.Context) {
	scope, ok := companyScope(c)
	if !ok {
		return
	}

	stats, err := h.svc.JobStats(requestContext(c), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// GET /api/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	scope, ok := companyScope(c)
	if !ok {
		return
	}

	job, err := h.svc.GetJob(requestContext(c), scope, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

// POST /api/jobs/:id/moderate
func (h *JobHandler) Moderate(c *gin.Context) {
	scope, ok := companyScope(c)
	if !ok {
		return
	}

	var req moderateJobRequest
	if !bindAndValidate(c, &req) {
		return
	}

	job, err := h.svc.ModerateJob(requestContext(c), scope, actorID(c), c.Param("id"), req.Decision, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

// POST /api/jobs/:id/flag
func (h *JobHandler) Flag(c *gin.Context) {
	scope, ok := companyScope(c)
	if !ok {
		return
	}

	var req flagJobRequest
	if !bindAndValidate(c, &req) {
		return
	}

	job, err := h.svc.FlagJob(requestContext(c), scope, actorID(c), c.Param("id"), req.Reason, req.Category)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

// POST /api/jobs/bulk-moderate
func (h *JobHandler) BulkModerate(c *gin.Context) {
	scope, ok := companyScope(c)
	if !ok {
		return
	}

	var req bulkModerateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	summary, err := h.svc.BulkModerate(requestContext(c), scope, actorID(c), req.JobIDs, req.Action, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}
