package checks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/cache"
	"github.com/jobhive/jobhive/internal/database/testutil"
	"github.com/jobhive/jobhive/internal/monitoring"
	"github.com/jobhive/jobhive/internal/monitoring/checks"
)

func TestDatabaseCheck(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	result := checks.Database(db, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	result = checks.Database(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Equal(t, "database not configured", result.Details)
}

func TestDatabaseCheckPingFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	result := checks.Database(db, time.Second).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Equal(t, "connection refused", result.Details)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCheck(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := cache.NewRedisStore(context.Background(), cache.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.Equal(t, monitoring.StatusUp, checks.Redis(store, true, 0).Run(context.Background()).Status)

	disabled := checks.Redis(nil, false, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, disabled.Status)
	require.Equal(t, "redis disabled", disabled.Details)

	require.Equal(t, monitoring.StatusDegraded, checks.Redis(nil, true, 0).Run(context.Background()).Status)

	mr.Close()
	require.Equal(t, monitoring.StatusDown, checks.Redis(store, true, time.Second).Run(context.Background()).Status)
}

func TestMaintenanceCheck(t *testing.T) {
	tracker := monitoring.NewJobTracker()

	empty := checks.Maintenance(tracker, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, empty.Status)

	tracker.Register("grant_expiry")
	pending := checks.Maintenance(tracker, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, pending.Status)
	require.Contains(t, pending.Details, "pending first run")

	tracker.RecordRun("grant_expiry", nil, time.Millisecond)
	require.Equal(t, monitoring.StatusUp, checks.Maintenance(tracker, 0).Run(context.Background()).Status)

	tracker.RecordRun("audit_retention", errors.New("timeout"), time.Millisecond)
	failing := checks.Maintenance(tracker, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, failing.Status)
	require.Contains(t, failing.Details, "audit_retention: timeout")

	time.Sleep(5 * time.Millisecond)
	stale := checks.Maintenance(tracker, time.Millisecond).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, stale.Status)
	require.Contains(t, stale.Details, "grant_expiry: stale run")
}
