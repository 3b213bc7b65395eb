package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/api"
	"github.com/jobhive/jobhive/internal/app"
	iauth "github.com/jobhive/jobhive/internal/auth"
	sharedtestutil "github.com/jobhive/jobhive/internal/database/testutil"
	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/pkg/crypto"
	"github.com/jobhive/jobhive/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	router, err := api.NewRouter(db, jwtSvc, cfg, nil)
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
	}
}

// CreateUser inserts an active admin-type user with a random email.
func (e *Env) CreateUser() *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword("Secret123!")
	require.NoError(e.T, err)

	user := &models.User{
		Email:        "user-" + uuid.NewString() + "@example.com",
		PasswordHash: hashed,
		UserType:     models.UserTypeAdmin,
		IsActive:     true,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// CreateCompany inserts an active company.
func (e *Env) CreateCompany(name string) *models.Company {
	e.T.Helper()

	company := &models.Company{
		Name:     name,
		Slug:     "company-" + uuid.NewString(),
		IsActive: true,
	}
	require.NoError(e.T, e.DB.Create(company).Error)
	return company
}

// CreateJob inserts a pending job owned by companyID.
func (e *Env) CreateJob(companyID, title string) *models.Job {
	e.T.Helper()

	job := &models.Job{
		CompanyID: companyID,
		Title:     title,
		Status:    models.JobStatusPending,
	}
	require.NoError(e.T, e.DB.Create(job).Error)
	return job
}

// Role loads a role by name.
func (e *Env) Role(name string) *models.Role {
	e.T.Helper()

	var role models.Role
	require.NoError(e.T, e.DB.Where("name = ?", name).First(&role).Error)
	return &role
}

// CustomRole inserts an active, non-system role conferring the given permission codes.
func (e *Env) CustomRole(name string, codes ...string) *models.Role {
	e.T.Helper()

	role := &models.Role{Name: name, IsActive: true}
	require.NoError(e.T, e.DB.Create(role).Error)

	for _, code := range codes {
		var perm models.Permission
		require.NoError(e.T, e.DB.Where("code = ?", code).First(&perm).Error)
		require.NoError(e.T, e.DB.Create(&models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).Error)
	}
	return role
}

// Grant binds userID to the named role, platform-wide when companyID is nil.
func (e *Env) Grant(userID, roleName string, companyID *string) *models.UserRoleGrant {
	e.T.Helper()

	grant := &models.UserRoleGrant{
		UserID:    userID,
		RoleID:    e.Role(roleName).ID,
		CompanyID: companyID,
		IsActive:  true,
		GrantedAt: time.Now(),
	}
	require.NoError(e.T, e.DB.Create(grant).Error)
	return grant
}

// Token issues an access token for userID carrying roleHint.
func (e *Env) Token(userID, roleHint string) string {
	e.T.Helper()

	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID, Role: roleHint})
	require.NoError(e.T, err)
	return token
}

// UserWithRole creates a user holding roleName and returns a token for them.
func (e *Env) UserWithRole(roleName string, companyID *string) (*models.User, string) {
	e.T.Helper()

	user := e.CreateUser()
	e.Grant(user.ID, roleName, companyID)
	return user, e.Token(user.ID, roleName)
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
