package handlers_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobhive/jobhive/internal/handlers/testutil"
	"github.com/jobhive/jobhive/internal/models"
)

func permissionIDs(t *testing.T, env *testutil.Env, codes ...string) []string {
	t.Helper()

	ids := make([]string, 0, len(codes))
	for _, code := range codes {
		var perm models.Permission
		require.NoError(t, env.DB.Where("code = ?", code).First(&perm).Error)
		ids = append(ids, perm.ID)
	}
	return ids
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) testutil.APIResponse {
	t.Helper()

	require.Equal(t, status, w.Code, w.Body.String())
	payload := testutil.DecodeResponse(t, w)
	require.False(t, payload.Success)
	require.NotNil(t, payload.Error)
	require.Equal(t, code, payload.Error.Code)
	return payload
}

type rolePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsActive    bool   `json:"is_active"`
	IsSystem    bool   `json:"is_system"`
	Permissions []struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	} `json:"permissions"`
}

func (r rolePayload) codes() []string {
	codes := make([]string, 0, len(r.Permissions))
	for _, perm := range r.Permissions {
		codes = append(codes, perm.Code)
	}
	return codes
}
