package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database returns a readiness check that pings the grant store. Any failure,
// including a timeout, reports the component down.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.CheckResult {
		start := time.Now()
		if db == nil {
			return monitoring.CheckResult{
				Status:   monitoring.StatusDown,
				Details:  "database not configured",
				Duration: time.Since(start),
			}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return down(err, start)
		}

		checkCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultDatabaseTimeout))
		defer cancel()

		if err := sqlDB.PingContext(checkCtx); err != nil {
			return down(err, start)
		}

		return monitoring.CheckResult{
			Status:   monitoring.StatusUp,
			Duration: time.Since(start),
		}
	})
}

func down(err error, start time.Time) monitoring.CheckResult {
	return monitoring.CheckResult{
		Status:   monitoring.StatusDown,
		Details:  err.Error(),
		Duration: time.Since(start),
	}
}

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
