package permissions

import (
	"sort"
)

// GrantView is the slice of a grant the decision engine needs.
type GrantView struct {
	GrantID     string
	RoleID      string
	RoleName    string
	CompanyID   *string
	Permissions []string
}

// Principal is the request-scoped view of a user's live grants.
// It is rebuilt from storage on every request and never cached.
type Principal struct {
	UserID   string
	RoleHint string
	Grants   []GrantView

	permissions map[string]struct{}
	roles       map[string]struct{}
}

// NewPrincipal computes the union of permissions and role names conferred by grants.
func NewPrincipal(userID, roleHint string, grants []GrantView) *Principal {
	p := &Principal{
		UserID:      userID,
		RoleHint:    roleHint,
		Grants:      grants,
		permissions: make(map[string]struct{}),
		roles:       make(map[string]struct{}, len(grants)),
	}
	for _, grant := range grants {
		p.roles[grant.RoleName] = struct{}{}
		for _, code := range grant.Permissions {
			p.permissions[code] = struct{}{}
		}
	}
	return p
}

// HasPermission reports whether any held role confers code.
func (p *Principal) HasPermission(code string) bool {
	if p == nil {
		return false
	}
	_, ok := p.permissions[code]
	return ok
}

// HasRole reports whether the principal holds a live grant of the named role.
func (p *Principal) HasRole(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.roles[name]
	return ok
}

// Permissions returns the sorted effective permission codes.
func (p *Principal) Permissions() []string {
	if p == nil {
		return nil
	}
	return sortedKeys(p.permissions)
}

// Roles returns the sorted names of held roles.
func (p *Principal) Roles() []string {
	if p == nil {
		return nil
	}
	return sortedKeys(p.roles)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
