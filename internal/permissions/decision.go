package permissions

import (
	"fmt"
	"strings"
)

// Reason explains a denied decision.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonNoPrincipal            Reason = "NoPrincipal"
	ReasonInsufficientPermission Reason = "InsufficientPermission"
	ReasonInsufficientRole       Reason = "InsufficientRole"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  Reason
	Missing []string
}

// Message renders a denial for API consumers, naming what was required.
func (d Decision) Message() string {
	switch d.Reason {
	case ReasonInsufficientPermission:
		return fmt.Sprintf("missing required permission: %s", strings.Join(d.Missing, ", "))
	case ReasonInsufficientRole:
		return fmt.Sprintf("requires one of roles: %s", strings.Join(d.Missing, ", "))
	case ReasonNoPrincipal:
		return "no principal"
	default:
		return ""
	}
}

// Authorize decides whether principal satisfies requirement. It never fails;
// a nil principal is denied.
func Authorize(principal *Principal, requirement Requirement) Decision {
	if principal == nil {
		return Decision{Reason: ReasonNoPrincipal}
	}

	var missing []string
	for _, code := range requirement.Permissions {
		if !principal.HasPermission(code) {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		return Decision{Reason: ReasonInsufficientPermission, Missing: missing}
	}

	if len(requirement.AnyRoles) > 0 {
		held := false
		for _, name := range requirement.AnyRoles {
			if principal.HasRole(name) {
				held = true
				break
			}
		}
		if !held {
			return Decision{Reason: ReasonInsufficientRole, Missing: append([]string(nil), requirement.AnyRoles...)}
		}
	}

	return Decision{Allowed: true}
}
