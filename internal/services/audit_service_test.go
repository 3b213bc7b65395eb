package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jobhive/jobhive/internal/auditctx"
	"github.com/jobhive/jobhive/internal/database/testutil"
	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/internal/permissions"
	"github.com/jobhive/jobhive/pkg/logger"
)

func newAuditService(t *testing.T) *AuditService {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)
	return svc
}

func TestAuditServiceLogEnrichesFromContext(t *testing.T) {
	svc := newAuditService(t)
	actorID := uuid.NewString()

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{
		UserID:    actorID,
		IPAddress: "203.0.113.7",
		UserAgent: "jobhive-test",
	})
	require.NoError(t, svc.Log(ctx, AuditEvent{
		Action:     AuditRoleCreate,
		EntityType: auditEntityRole,
		EntityID:   "role-1",
		Result:     AuditResultSuccess,
		Metadata:   map[string]any{"name": "EDITOR"},
	}))

	logs, total, err := svc.List(context.Background(), permissions.ScopeAll, AuditListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	entry := logs[0]
	require.Equal(t, actorID, *entry.ActorID)
	require.Equal(t, "203.0.113.7", entry.IPAddress)
	require.Equal(t, "jobhive-test", entry.UserAgent)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(entry.Metadata, &metadata))
	require.Equal(t, "EDITOR", metadata["name"])
}

func TestAuditServiceLogRequiresActionAndResult(t *testing.T) {
	svc := newAuditService(t)

	require.Error(t, svc.Log(context.Background(), AuditEvent{Result: AuditResultSuccess}))
	require.Error(t, svc.Log(context.Background(), AuditEvent{Action: AuditRoleCreate}))
}

func TestAuditServiceListFilters(t *testing.T) {
	svc := newAuditService(t)
	ctx := context.Background()
	actorID := uuid.NewString()

	events := []AuditEvent{
		{ActorID: actorID, Action: AuditGrantCreate, EntityType: auditEntityGrant, EntityID: "g-1", Result: AuditResultSuccess},
		{ActorID: actorID, Action: AuditGrantRevoke, EntityType: auditEntityGrant, EntityID: "g-1", Result: AuditResultSuccess},
		{Action: AuditGrantExpire, EntityType: auditEntityGrant, Result: AuditResultFailure},
	}
	for _, event := range events {
		require.NoError(t, svc.Log(ctx, event))
	}

	logs, total, err := svc.List(ctx, permissions.ScopeAll, AuditListOptions{Filters: AuditFilters{ActorID: actorID}})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, logs, 2)

	logs, _, err = svc.List(ctx, permissions.ScopeAll, AuditListOptions{Filters: AuditFilters{Action: AuditGrantRevoke}})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	logs, _, err = svc.List(ctx, permissions.ScopeAll, AuditListOptions{Filters: AuditFilters{Result: AuditResultFailure}})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Nil(t, logs[0].ActorID)

	future := time.Now().Add(time.Hour)
	_, total, err = svc.List(ctx, permissions.ScopeAll, AuditListOptions{Filters: AuditFilters{Since: &future}})
	require.NoError(t, err)
	require.Zero(t, total)

	logs, total, err = svc.List(ctx, permissions.ScopeAll, AuditListOptions{PageSize: 2, Page: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, logs, 1)
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	svc := newAuditService(t)
	ctx := context.Background()

	old := models.AuditLog{
		Action:     AuditRoleDelete,
		EntityType: auditEntityRole,
		Result:     AuditResultSuccess,
		CreatedAt:  time.Now().AddDate(0, 0, -120),
	}
	require.NoError(t, svc.db.Create(&old).Error)
	require.NoError(t, svc.Log(ctx, AuditEvent{Action: AuditRoleCreate, EntityType: auditEntityRole, Result: AuditResultSuccess}))

	_, err := svc.CleanupOlderThan(ctx, 0)
	require.Error(t, err)

	removed, err := svc.CleanupOlderThan(ctx, 90)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, total, err := svc.List(ctx, permissions.ScopeAll, AuditListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestRecordAuditEventLogsFailures(t *testing.T) {
	core, recorded := observer.New(zap.WarnLevel)
	logger.Replace(zap.New(core))
	t.Cleanup(func() { logger.Replace(nil) })

	svc := newAuditService(t)
	sqlDB, err := svc.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	svc.RecordAuditEvent(context.Background(), AuditEvent{
		Action:     AuditGrantCreate,
		EntityType: auditEntityGrant,
		EntityID:   "grant-1",
		Result:     AuditResultSuccess,
	})

	entries := recorded.FilterMessage("audit write failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, AuditGrantCreate, fields["action"])
	require.Equal(t, "audit", fields["module"])
}

func TestRecordAuditDefaultsResult(t *testing.T) {
	sink := &recordingSink{}
	recordAudit(sink, context.Background(), AuditEvent{Action: AuditRoleCreate})
	require.Equal(t, AuditResultSuccess, sink.actions(AuditRoleCreate)[0].Result)

	require.NotPanics(t, func() {
		recordAudit(nil, context.Background(), AuditEvent{Action: AuditRoleCreate})
	})
}

func TestAuditServiceListScopesByCompany(t *testing.T) {
	svc := newAuditService(t)
	ctx := context.Background()
	acme := uuid.NewString()
	globex := uuid.NewString()

	events := []AuditEvent{
		{CompanyID: acme, Action: AuditCompanyCreate, EntityType: auditEntityCompany, EntityID: acme, Result: AuditResultSuccess},
		{Action: AuditGrantCreate, EntityType: auditEntityGrant, Result: AuditResultSuccess, Metadata: map[string]any{"company_id": globex}},
		{Action: AuditRoleCreate, EntityType: auditEntityRole, Result: AuditResultSuccess},
	}
	for _, event := range events {
		require.NoError(t, svc.Log(ctx, event))
	}

	logs, total, err := svc.List(ctx, permissions.CompanyScope(acme), AuditListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, AuditCompanyCreate, logs[0].Action)
	require.Equal(t, acme, *logs[0].CompanyID)

	logs, _, err = svc.List(ctx, permissions.CompanyScope(globex), AuditListOptions{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, AuditGrantCreate, logs[0].Action)

	_, total, err = svc.List(ctx, permissions.Scope{}, AuditListOptions{})
	require.NoError(t, err)
	require.Zero(t, total)

	_, total, err = svc.List(ctx, permissions.ScopeAll, AuditListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
}
