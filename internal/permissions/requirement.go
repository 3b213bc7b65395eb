package permissions

import (
	"strings"
)

// Requirement describes what a principal must hold to pass a guard.
// Permissions are ANDed; AnyRoles is satisfied by holding one of the listed roles.
type Requirement struct {
	Permissions   []string
	AnyRoles      []string
	CompanyScoped bool
}

// RequiresPermission builds a requirement on every listed permission code.
func RequiresPermission(codes ...string) Requirement {
	return Requirement{Permissions: append([]string(nil), codes...)}
}

// RequiresAnyRole builds a requirement satisfied by holding any listed role.
func RequiresAnyRole(names ...string) Requirement {
	return Requirement{AnyRoles: append([]string(nil), names...)}
}

// Authenticated is the empty requirement: any loaded principal passes.
func Authenticated() Requirement {
	return Requirement{}
}

// And combines two requirements; both must hold.
func (r Requirement) And(other Requirement) Requirement {
	combined := Requirement{
		Permissions:   append(append([]string(nil), r.Permissions...), other.Permissions...),
		AnyRoles:      append(append([]string(nil), r.AnyRoles...), other.AnyRoles...),
		CompanyScoped: r.CompanyScoped || other.CompanyScoped,
	}
	return combined
}

// Scoped marks the requirement as needing a resolved company scope.
func (r Requirement) Scoped() Requirement {
	r.CompanyScoped = true
	return r
}

// String renders the requirement for logs and metric labels.
func (r Requirement) String() string {
	parts := make([]string, 0, 3)
	if len(r.Permissions) > 0 {
		parts = append(parts, "perm:"+strings.Join(r.Permissions, "+"))
	}
	if len(r.AnyRoles) > 0 {
		parts = append(parts, "role:"+strings.Join(r.AnyRoles, "|"))
	}
	if r.CompanyScoped {
		parts = append(parts, "scoped")
	}
	if len(parts) == 0 {
		return "authenticated"
	}
	return strings.Join(parts, ",")
}
