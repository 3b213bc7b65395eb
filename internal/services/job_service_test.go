package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/internal/permissions"
	apperrors "github.com/jobhive/jobhive/pkg/errors"
)

type jobFixture struct {
	*serviceFixture
	acme     *models.Company
	globex   *models.Company
	acmeJob  *models.Job
	otherJob *models.Job
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	f := newServiceFixture(t)
	acme := f.company(t, "Acme")
	globex := f.company(t, "Globex")
	return &jobFixture{
		serviceFixture: f,
		acme:           acme,
		globex:         globex,
		acmeJob:        f.job(t, acme.ID, "Backend Engineer"),
		otherJob:       f.job(t, globex.ID, "Data Analyst"),
	}
}

func TestJobServiceForeignAndMissingJobsLookAlike(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	scope := permissions.CompanyScope(f.acme.ID)

	job, err := f.jobs.GetJob(ctx, scope, f.acmeJob.ID)
	require.NoError(t, err)
	require.Equal(t, "Backend Engineer", job.Title)

	_, foreignErr := f.jobs.GetJob(ctx, scope, f.otherJob.ID)
	_, missingErr := f.jobs.GetJob(ctx, scope, missingID)
	_, malformedErr := f.jobs.GetJob(ctx, scope, "not-a-uuid")
	for _, err := range []error{foreignErr, missingErr, malformedErr} {
		require.ErrorIs(t, err, permissions.ErrOutOfScope)
		require.Equal(t, 403, apperrors.StatusOf(err))
		require.Equal(t, apperrors.FromError(foreignErr).Message, apperrors.FromError(err).Message)
	}

	_, err = f.jobs.GetJob(ctx, permissions.ScopeAll, missingID)
	require.ErrorIs(t, err, ErrJobNotFound)

	_, err = f.jobs.GetJob(ctx, permissions.Scope{}, f.acmeJob.ID)
	require.ErrorIs(t, err, permissions.ErrOutOfScope)
}

func TestJobServiceListFiltersByScope(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	f.job(t, f.acme.ID, "Frontend Engineer")

	jobs, total, err := f.jobs.ListJobs(ctx, permissions.CompanyScope(f.acme.ID), JobFilters{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	for _, job := range jobs {
		require.Equal(t, f.acme.ID, job.CompanyID)
	}

	_, total, err = f.jobs.ListJobs(ctx, permissions.ScopeAll, JobFilters{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)

	jobs, _, err = f.jobs.ListJobs(ctx, permissions.ScopeAll, JobFilters{Search: "engineer"})
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	jobs, _, err = f.jobs.ListJobs(ctx, permissions.ScopeAll, JobFilters{Status: models.JobStatusPending, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	jobs, total, err = f.jobs.ListJobs(ctx, permissions.Scope{}, JobFilters{})
	require.NoError(t, err)
	require.Empty(t, jobs)
	require.Zero(t, total)
}

func TestJobServiceModerate(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	scope := permissions.CompanyScope(f.acme.ID)

	approved, err := f.jobs.ModerateJob(ctx, scope, "moderator-1", f.acmeJob.ID, "approved", "looks good")
	require.NoError(t, err)
	require.True(t, approved.IsActive)
	require.Equal(t, models.JobStatusActive, approved.Status)
	require.Equal(t, "moderator-1", *approved.ModeratedBy)
	require.NotNil(t, approved.ModeratedAt)

	rejected, err := f.jobs.ModerateJob(ctx, scope, "moderator-1", f.acmeJob.ID, "REJECTED", "")
	require.NoError(t, err)
	require.False(t, rejected.IsActive)
	require.Equal(t, models.JobStatusRejected, rejected.Status)

	_, err = f.jobs.ModerateJob(ctx, scope, "moderator-1", f.acmeJob.ID, "maybe", "")
	require.Equal(t, 400, apperrors.StatusOf(err))

	_, err = f.jobs.ModerateJob(ctx, scope, "moderator-1", f.otherJob.ID, DecisionApproved, "")
	require.ErrorIs(t, err, permissions.ErrOutOfScope)

	var untouched models.Job
	require.NoError(t, f.db.First(&untouched, "id = ?", f.otherJob.ID).Error)
	require.Equal(t, models.JobStatusPending, untouched.Status)
	require.Nil(t, untouched.ModeratedBy)

	require.Len(t, f.sink.actions(AuditJobModerate), 2)
}

func TestJobServiceFlag(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	_, err := f.jobs.FlagJob(ctx, permissions.ScopeAll, "", f.acmeJob.ID, "  ", "spam")
	require.Equal(t, 400, apperrors.StatusOf(err))

	flagged, err := f.jobs.FlagJob(ctx, permissions.ScopeAll, "moderator-1", f.acmeJob.ID, "misleading salary", "fraud")
	require.NoError(t, err)
	require.False(t, flagged.IsActive)
	require.Equal(t, models.JobStatusFlagged, flagged.Status)
	require.Equal(t, "misleading salary", flagged.FlagReason)
	require.Equal(t, "fraud", flagged.FlagCategory)

	_, err = f.jobs.FlagJob(ctx, permissions.CompanyScope(f.globex.ID), "moderator-1", f.acmeJob.ID, "reason", "")
	require.ErrorIs(t, err, permissions.ErrOutOfScope)

	events := f.sink.actions(AuditJobFlag)
	require.Len(t, events, 1)
	require.Equal(t, f.acme.ID, events[0].Metadata["company_id"])
}

func TestJobServiceBulkModerateReportsPerItem(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	second := f.job(t, f.acme.ID, "Support Engineer")

	summary, err := f.jobs.BulkModerate(ctx, permissions.CompanyScope(f.acme.ID), "moderator-1",
		[]string{f.acmeJob.ID, f.otherJob.ID, second.ID, f.acmeJob.ID}, BulkActionApprove, "")
	require.NoError(t, err)
	require.Equal(t, 2, summary.Processed)
	require.Len(t, summary.Results, 3)
	require.True(t, summary.Results[0].Success)
	require.False(t, summary.Results[1].Success)
	require.Equal(t, permissions.ErrOutOfScope.Message, summary.Results[1].Error)
	require.True(t, summary.Results[2].Success)

	_, err = f.jobs.BulkModerate(ctx, permissions.ScopeAll, "moderator-1", nil, BulkActionReject, "")
	require.Equal(t, 400, apperrors.StatusOf(err))

	_, err = f.jobs.BulkModerate(ctx, permissions.ScopeAll, "moderator-1", []string{f.acmeJob.ID}, "archive", "")
	require.Equal(t, 400, apperrors.StatusOf(err))

	bulk := f.sink.actions(AuditJobBulkModerate)
	require.Len(t, bulk, 1)
	require.Equal(t, 2, bulk[0].Metadata["processed"])
}

func TestJobServiceStats(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	f.job(t, f.acme.ID, "Designer")

	_, err := f.jobs.ModerateJob(ctx, permissions.ScopeAll, "", f.acmeJob.ID, DecisionApproved, "")
	require.NoError(t, err)

	stats, err := f.jobs.JobStats(ctx, permissions.CompanyScope(f.acme.ID))
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Total)
	require.EqualValues(t, 1, stats.Active)
	require.EqualValues(t, 1, stats.Inactive)
	require.EqualValues(t, 1, stats.ByStatus[models.JobStatusActive])
	require.EqualValues(t, 1, stats.ByStatus[models.JobStatusPending])

	all, err := f.jobs.JobStats(ctx, permissions.ScopeAll)
	require.NoError(t, err)
	require.EqualValues(t, 3, all.Total)
}
