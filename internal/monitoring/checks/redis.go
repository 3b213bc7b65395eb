package checks

import (
	"context"
	"time"

	"github.com/jobhive/jobhive/internal/monitoring"
)

const defaultRedisTimeout = 2 * time.Second

// RedisPinger represents the minimal interface required to ping a redis connection.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis returns a readiness check for the shared rate limit store. When Redis
// is disabled the check reports up; when it is configured but was never
// reached the limiter runs on the database and the check reports degraded.
func Redis(client RedisPinger, enabled bool, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.CheckResult {
		start := time.Now()
		if !enabled {
			return monitoring.CheckResult{
				Status:   monitoring.StatusUp,
				Details:  "redis disabled",
				Duration: time.Since(start),
			}
		}
		if client == nil {
			return monitoring.CheckResult{
				Status:   monitoring.StatusDegraded,
				Details:  "redis unavailable; rate limiting on database store",
				Duration: time.Since(start),
			}
		}

		checkCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultRedisTimeout))
		defer cancel()

		if err := client.Ping(checkCtx); err != nil {
			return monitoring.ResultFromError("redis", err, time.Since(start))
		}

		return monitoring.CheckResult{
			Status:   monitoring.StatusUp,
			Duration: time.Since(start),
		}
	})
}
