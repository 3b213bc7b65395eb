package permissions

import (
	"net/http"

	"gorm.io/gorm"

	apperrors "github.com/jobhive/jobhive/pkg/errors"
)

var (
	// ErrNoAssignedCompany is returned when a principal has neither a platform-wide nor a company grant.
	ErrNoAssignedCompany = apperrors.New("NO_ASSIGNED_COMPANY", "no assigned company", http.StatusForbidden)
	// ErrAmbiguousScope is returned when company grants span more than one company.
	ErrAmbiguousScope = apperrors.New("AMBIGUOUS_COMPANY_SCOPE", "ambiguous company scope", http.StatusForbidden)
	// ErrOutOfScope hides whether a resource outside the caller's company exists.
	ErrOutOfScope = apperrors.New("FORBIDDEN", "resource is outside your company scope", http.StatusForbidden)
)

// Scope is the effective company filter for a request.
type Scope struct {
	All       bool
	CompanyID string
}

// ScopeAll is the unconstrained scope held by platform-wide principals.
var ScopeAll = Scope{All: true}

// CompanyScope returns a scope bound to one company.
func CompanyScope(companyID string) Scope {
	return Scope{CompanyID: companyID}
}

// String renders the scope for logs.
func (s Scope) String() string {
	if s.All {
		return "ALL"
	}
	return s.CompanyID
}

// ResolveScope derives the effective scope from the principal's live grants.
// A platform-wide grant wins; otherwise exactly one distinct company is required.
func ResolveScope(principal *Principal) (Scope, error) {
	if principal == nil {
		return Scope{}, ErrNoAssignedCompany
	}

	companies := make(map[string]struct{})
	for _, grant := range principal.Grants {
		if grant.CompanyID == nil {
			return ScopeAll, nil
		}
		companies[*grant.CompanyID] = struct{}{}
	}

	switch len(companies) {
	case 0:
		return Scope{}, ErrNoAssignedCompany
	case 1:
		for companyID := range companies {
			return CompanyScope(companyID), nil
		}
	}
	return Scope{}, ErrAmbiguousScope
}

// EnforceScope reports whether a resource owned by resourceCompanyID is visible in scope.
func EnforceScope(scope Scope, resourceCompanyID string) bool {
	if scope.All {
		return true
	}
	if scope.CompanyID == "" {
		return false
	}
	return scope.CompanyID == resourceCompanyID
}

// Filter returns a gorm scope constraining column to the scope's company.
// An empty, non-ALL scope matches nothing.
func (s Scope) Filter(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if s.All {
			return db
		}
		if s.CompanyID == "" {
			return db.Where("1 = 0")
		}
		return db.Where(column+" = ?", s.CompanyID)
	}
}
