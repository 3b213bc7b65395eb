package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/database/testutil"
	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/internal/permissions"
)

type recordingSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (r *recordingSink) RecordAuditEvent(_ context.Context, event AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) actions(action string) []AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AuditEvent
	for _, event := range r.events {
		if event.Action == action {
			out = append(out, event)
		}
	}
	return out
}

type serviceFixture struct {
	db          *gorm.DB
	sink        *recordingSink
	loader      *permissions.Loader
	permissions *PermissionService
	roles       *RoleService
	grants      *GrantService
	users       *UserService
	companies   *CompanyService
	jobs        *JobService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	sink := &recordingSink{}

	loader, err := permissions.NewLoader(db)
	require.NoError(t, err)

	permSvc, err := NewPermissionService(db, sink)
	require.NoError(t, err)
	roleSvc, err := NewRoleService(db, sink)
	require.NoError(t, err)
	grantSvc, err := NewGrantService(db, sink, loader)
	require.NoError(t, err)
	userSvc, err := NewUserService(db, sink)
	require.NoError(t, err)
	companySvc, err := NewCompanyService(db, sink)
	require.NoError(t, err)
	jobSvc, err := NewJobService(db, sink)
	require.NoError(t, err)

	return &serviceFixture{
		db:          db,
		sink:        sink,
		loader:      loader,
		permissions: permSvc,
		roles:       roleSvc,
		grants:      grantSvc,
		users:       userSvc,
		companies:   companySvc,
		jobs:        jobSvc,
	}
}

func (f *serviceFixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := f.users.CreateUser(context.Background(), CreateUserInput{
		Email:    email,
		Password: "secret123!",
		UserType: models.UserTypeAdmin,
	})
	require.NoError(t, err)
	return user
}

func (f *serviceFixture) company(t *testing.T, name string) *models.Company {
	t.Helper()
	company, err := f.companies.CreateCompany(context.Background(), CreateCompanyInput{Name: name})
	require.NoError(t, err)
	return company
}

func (f *serviceFixture) role(t *testing.T, name string) *models.Role {
	t.Helper()
	var role models.Role
	require.NoError(t, f.db.Preload("Permissions").Where("name = ?", name).First(&role).Error)
	return &role
}

// grant issues a grant through the internal workflow path, bypassing granter checks.
func (f *serviceFixture) grant(t *testing.T, userID, roleName string, companyID *string) *models.UserRoleGrant {
	t.Helper()
	grant, err := f.grants.GrantRole(context.Background(), GrantRoleInput{
		UserID:    userID,
		RoleID:    f.role(t, roleName).ID,
		CompanyID: companyID,
	})
	require.NoError(t, err)
	return grant
}

func (f *serviceFixture) job(t *testing.T, companyID, title string) *models.Job {
	t.Helper()
	job := &models.Job{
		CompanyID: companyID,
		Title:     title,
		Status:    models.JobStatusPending,
	}
	require.NoError(t, f.db.Create(job).Error)
	return job
}

func (f *serviceFixture) principal(t *testing.T, userID string) *permissions.Principal {
	t.Helper()
	principal, err := f.loader.Load(context.Background(), userID, "")
	require.NoError(t, err)
	return principal
}

func (f *serviceFixture) scope(t *testing.T, userID string) permissions.Scope {
	t.Helper()
	scope, err := permissions.ResolveScope(f.principal(t, userID))
	require.NoError(t, err)
	return scope
}

func stringPtr(value string) *string {
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}
