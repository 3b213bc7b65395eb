package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/internal/permissions"
	apperrors "github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/metrics"
)

var (
	// ErrCompanyNotFound indicates the requested company does not exist.
	ErrCompanyNotFound = apperrors.New("COMPANY_NOT_FOUND", "Company not found", http.StatusNotFound)
	// ErrCompanySlugExists reports a duplicate company slug.
	ErrCompanySlugExists = apperrors.New("COMPANY_EXISTS", "company slug already exists", http.StatusConflict)

	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// CreateCompanyInput captures the attributes required to register a company.
type CreateCompanyInput struct {
	Name        string
	Slug        string
	Description string
	Settings    map[string]any
	ActorID     string
}

// CompanyListOptions controls pagination and search for company listing.
type CompanyListOptions struct {
	Page     int
	PageSize int
	Search   string
}

// CompanyService manages tenants. Reads are constrained by the caller's scope.
type CompanyService struct {
	db    *gorm.DB
	audit AuditSink
}

// NewCompanyService constructs a CompanyService instance.
func NewCompanyService(db *gorm.DB, audit AuditSink) (*CompanyService, error) {
	if db == nil {
		return nil, errors.New("company service: db is required")
	}
	return &CompanyService{db: db, audit: audit}, nil
}

// CreateCompany registers a new company.
func (s *CompanyService) CreateCompany(ctx context.Context, input CreateCompanyInput) (*models.Company, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("company name is required")
	}
	slug := slugify(input.Slug)
	if slug == "" {
		slug = slugify(name)
	}
	if slug == "" {
		return nil, apperrors.NewBadRequest("company slug is required")
	}

	company := &models.Company{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}

	if input.Settings != nil {
		data, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, fmt.Errorf("company service: marshal settings: %w", err)
		}
		company.Settings = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(company).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrCompanySlugExists
		}
		return nil, storageError("company service: create company", err)
	}

	recordAudit(s.audit, ctx, AuditEvent{
		ActorID:    input.ActorID,
		CompanyID:  company.ID,
		Action:     AuditCompanyCreate,
		EntityType: auditEntityCompany,
		EntityID:   company.ID,
		Metadata: map[string]any{
			"name": company.Name,
			"slug": company.Slug,
		},
	})

	return company, nil
}

// GetCompany loads a company visible in scope. A scoped caller receives the same
// denial for foreign and missing companies.
func (s *CompanyService) GetCompany(ctx context.Context, scope permissions.Scope, id string) (*models.Company, error) {
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if !permissions.EnforceScope(scope, id) {
		metrics.ScopeDenials.WithLabelValues(auditEntityCompany).Inc()
		return nil, permissions.ErrOutOfScope
	}

	company, err := findCompany(s.db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, ErrCompanyNotFound) && !scope.All {
			return nil, permissions.ErrOutOfScope
		}
		return nil, err
	}
	return company, nil
}

// ListCompanies returns the companies visible in scope ordered by name.
func (s *CompanyService) ListCompanies(ctx context.Context, scope permissions.Scope, opts CompanyListOptions) ([]models.Company, int64, error) {
	ctx = ensureContext(ctx)

	page, perPage := normalisePage(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Company{}).Scopes(scope.Filter("id"))
	if search := strings.TrimSpace(opts.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(slug) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageError("company service: count companies", err)
	}

	var companies []models.Company
	if err := query.Order("name ASC").Offset((page - 1) * perPage).Limit(perPage).Find(&companies).Error; err != nil {
		return nil, 0, storageError("company service: list companies", err)
	}
	return companies, total, nil
}

func findCompany(db *gorm.DB, id string) (*models.Company, error) {
	if !isValidID(id) {
		return nil, ErrCompanyNotFound
	}
	var company models.Company
	if err := db.First(&company, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, storageError("company service: load company", err)
	}
	return &company, nil
}

func slugify(value string) string {
	slug := slugInvalidChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	return strings.Trim(slug, "-")
}
