package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/middleware"
	"github.com/jobhive/jobhive/internal/services"
	"github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/response"
)

type CompanyHandler struct {
	companies *services.CompanyService
	users     *services.UserService
}

func NewCompanyHandler(companies *services.CompanyService, users *services.UserService) *CompanyHandler {
	return &CompanyHandler{companies: companies, users: users}
}

type createCompanyRequest struct {
	Name        string         `json:"name" validate:"required,max=200"`
	Slug        string         `json:"slug" validate:"omitempty,max=200"`
	Description string         `json:"description" validate:"max=1000"`
	Settings    map[string]any `json:"settings"`
}

type createCompanyAdminRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      string `json:"role" validate:"omitempty,max=100"`
}

// POST /api/companies
func (h *CompanyHandler) Create(c *gin.Context) {
	var req createCompanyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	company, err := h.companies.CreateCompany(requestContext(c), services.CreateCompanyInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Settings:    req.Settings,
		ActorID:     actorID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, company)
}

// GET /api/companies
func (h *CompanyHandler) List(c *gin.Context) {
	scope, ok := companyScope(c)
	if !ok {
		return
	}

	page, perPage := paginationParams(c)
	companies, total, err := h.companies.ListCompanies(requestContext(c), scope, services.CompanyListOptions{
		Page:     page,
		PageSize: perPage,
		Search:   c.Query("search"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, companies, response.NewMeta(page, perPage, total))
}

// GET /api/companies/:id
func (h *CompanyHandler) Get(c *gin.Context) {
	scope, ok := companyScope(c)
	if !ok {
		return
	}

	company, err := h.companies.GetCompany(requestContext(c), scope, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, company)
}

// POST /api/companies/:id/admins
func (h *CompanyHandler) CreateAdmin(c *gin.Context) {
	scope, ok := companyScope(c)
	if !ok {
		return
	}

	var req createCompanyAdminRequest
	if !bindAndValidate(c, &req) {
		return
	}

	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, grant, err := h.users.CreateCompanyAdmin(requestContext(c), scope, services.CreateCompanyAdminInput{
		CompanyID: c.Param("id"),
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleName:  req.Role,
		GranterID: actorID(c),
		Granter:   principal,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"user": user, "grant": grant})
}
