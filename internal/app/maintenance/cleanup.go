package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jobhive/jobhive/internal/monitoring"
	"github.com/jobhive/jobhive/pkg/logger"
)

const (
	defaultAuditRetentionDays = 365
	defaultGrantSpec          = "@every 1m"
	defaultAuditSpec          = "@daily"

	// Job names reported to the tracker and metrics.
	JobGrantExpiry    = "grant_expiry"
	JobAuditRetention = "audit_retention"
)

// GrantExpirer deactivates grants whose expiry has passed.
type GrantExpirer interface {
	ExpireGrants(ctx context.Context, now time.Time) (int64, error)
}

// AuditPruner removes audit entries outside the retention window.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// Cleaner coordinates background maintenance: sweeping expired role grants and
// pruning audit logs past retention.
type Cleaner struct {
	grants    GrantExpirer
	audit     AuditPruner
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	tracker   *monitoring.JobTracker
	retention int

	grantSchedule string
	auditSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithTracker reports every run to tracker for the maintenance health check.
func WithTracker(tracker *monitoring.JobTracker) Option {
	return func(cleaner *Cleaner) {
		cleaner.tracker = tracker
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithGrantSchedule overrides the cron specification for the grant expiry sweep.
func WithGrantSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.grantSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the corresponding job.
func NewCleaner(grants GrantExpirer, audit AuditPruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		grants:        grants,
		audit:         audit,
		now:           time.Now,
		retention:     defaultAuditRetentionDays,
		grantSchedule: defaultGrantSpec,
		auditSchedule: defaultAuditSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	if c.grants == nil && c.audit == nil {
		return nil
	}

	if c.grants != nil {
		c.tracker.Register(JobGrantExpiry)
		if _, err := c.cron.AddFunc(c.grantSchedule, func() {
			if _, err := c.expireGrants(context.Background()); err != nil {
				c.log.Warn("grant expiry sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil {
		c.tracker.Register(JobAuditRetention)
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.pruneAudit(context.Background()); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially, returning all failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.grants != nil {
		if _, err := c.expireGrants(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.audit != nil {
		if _, err := c.pruneAudit(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Cleaner) expireGrants(ctx context.Context) (int64, error) {
	start := time.Now()
	expired, err := c.grants.ExpireGrants(ctx, c.now())
	c.tracker.RecordRun(JobGrantExpiry, err, time.Since(start))
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		c.log.Info("expired role grants", zap.Int64("count", expired))
	}
	return expired, nil
}

func (c *Cleaner) pruneAudit(ctx context.Context) (int64, error) {
	start := time.Now()
	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	c.tracker.RecordRun(JobAuditRetention, err, time.Since(start))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.log.Info("pruned audit logs", zap.Int64("count", removed), zap.Int("retention_days", c.retention))
	}
	return removed, nil
}
