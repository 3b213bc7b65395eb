package permissions

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jobhive/jobhive/pkg/validator"
)

// Permission codes shipped with the default catalog.
const (
	AccessAdminPanel   = "ACCESS_ADMIN_PANEL"
	CreateCompany      = "CREATE_COMPANY"
	UpdateCompany      = "UPDATE_COMPANY"
	DeleteCompany      = "DELETE_COMPANY"
	ViewCompany        = "VIEW_COMPANY"
	CreateAdmin        = "CREATE_ADMIN"
	UpdateAdmin        = "UPDATE_ADMIN"
	DeleteAdmin        = "DELETE_ADMIN"
	CreateEmployer     = "CREATE_EMPLOYER"
	UpdateEmployer     = "UPDATE_EMPLOYER"
	DeleteEmployer     = "DELETE_EMPLOYER"
	CreateJob          = "CREATE_JOB"
	UpdateJob          = "UPDATE_JOB"
	DeleteJob          = "DELETE_JOB"
	ViewJob            = "VIEW_JOB"
	ModerateJob        = "MODERATE_JOB"
	ManageUsers        = "MANAGE_USERS"
	ViewUsers          = "VIEW_USERS"
	UpdateUsers        = "UPDATE_USERS"
	DeleteUsers        = "DELETE_USERS"
	ViewApplications   = "VIEW_APPLICATIONS"
	ManageApplications = "MANAGE_APPLICATIONS"
	ManageRoles        = "MANAGE_ROLES"
	AssignRoles        = "ASSIGN_ROLES"
	ManageSettings     = "MANAGE_SETTINGS"
	ViewAuditLogs      = "VIEW_AUDIT_LOGS"
)

// System role names.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleEmployer   = "EMPLOYER"
	RoleModerator  = "MODERATOR"
)

// allPermissions is the wildcard used by a role definition to receive every catalog permission.
const allPermissions = "*"

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Definition describes a catalog permission.
type Definition struct {
	Code        string `yaml:"code"`
	Resource    string `yaml:"resource"`
	Action      string `yaml:"action"`
	Description string `yaml:"description"`
}

// RoleDefinition describes a system role seeded at start-up.
type RoleDefinition struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

// Catalog is the parsed permission and system role catalog.
type Catalog struct {
	Permissions []Definition     `yaml:"permissions"`
	Roles       []RoleDefinition `yaml:"roles"`

	index map[string]Definition
}

var (
	errEmptyCode      = errors.New("permission catalog: code is required")
	errDuplicateCode  = errors.New("permission catalog: duplicate code")
	errInvalidCode    = errors.New("permission catalog: invalid code")
	errUnknownCode    = errors.New("permission catalog: unknown permission")
	errDuplicateRole  = errors.New("permission catalog: duplicate role")
	errIncompleteDefn = errors.New("permission catalog: resource and action are required")
)

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// DefaultCatalog returns the embedded catalog, parsed once.
func DefaultCatalog() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = ParseCatalog(defaultCatalogYAML)
	})
	return defaultCatalog, defaultErr
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("permission catalog: decode: %w", err)
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (c *Catalog) validate() error {
	c.index = make(map[string]Definition, len(c.Permissions))
	for i, def := range c.Permissions {
		def.Code = strings.TrimSpace(def.Code)
		def.Resource = strings.TrimSpace(def.Resource)
		def.Action = strings.TrimSpace(def.Action)
		switch {
		case def.Code == "":
			return errEmptyCode
		case !validator.IsPermissionCode(def.Code):
			return fmt.Errorf("%w: %q", errInvalidCode, def.Code)
		case def.Resource == "" || def.Action == "":
			return fmt.Errorf("%w: %s", errIncompleteDefn, def.Code)
		}
		if _, exists := c.index[def.Code]; exists {
			return fmt.Errorf("%w: %s", errDuplicateCode, def.Code)
		}
		c.Permissions[i] = def
		c.index[def.Code] = def
	}

	seenRoles := make(map[string]struct{}, len(c.Roles))
	for _, role := range c.Roles {
		if _, exists := seenRoles[role.Name]; exists {
			return fmt.Errorf("%w: %s", errDuplicateRole, role.Name)
		}
		seenRoles[role.Name] = struct{}{}
		for _, code := range role.Permissions {
			if code == allPermissions {
				continue
			}
			if _, ok := c.index[code]; !ok {
				return fmt.Errorf("%w %q in role %s", errUnknownCode, code, role.Name)
			}
		}
	}
	return nil
}

// Get returns the catalog definition for code.
func (c *Catalog) Get(code string) (Definition, bool) {
	def, ok := c.index[code]
	return def, ok
}

// Codes returns every catalog code in declaration order.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.Permissions))
	for _, def := range c.Permissions {
		codes = append(codes, def.Code)
	}
	return codes
}

// RolePermissions expands the wildcard for a role definition.
func (c *Catalog) RolePermissions(role RoleDefinition) []string {
	for _, code := range role.Permissions {
		if code == allPermissions {
			return c.Codes()
		}
	}
	return append([]string(nil), role.Permissions...)
}

// GrantsAll reports whether the role definition receives every catalog permission.
func (role RoleDefinition) GrantsAll() bool {
	for _, code := range role.Permissions {
		if code == allPermissions {
			return true
		}
	}
	return false
}

// IsSystemRole reports whether name is one of the seeded system roles.
func IsSystemRole(name string) bool {
	switch name {
	case RoleSuperAdmin, RoleAdmin, RoleEmployer, RoleModerator:
		return true
	default:
		return false
	}
}
