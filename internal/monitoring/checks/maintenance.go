package checks

import (
	"context"
	"strings"
	"time"

	"github.com/jobhive/jobhive/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// Maintenance verifies that background jobs run successfully within maxAge.
// A zero maxAge selects a six hour window. Jobs that never ran are reported
// but do not degrade the service.
func Maintenance(tracker *monitoring.JobTracker, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.CheckResult {
		start := time.Now()
		jobs := tracker.Snapshot()

		if len(jobs) == 0 {
			return monitoring.CheckResult{
				Status:   monitoring.StatusUp,
				Details:  "no maintenance jobs registered",
				Duration: time.Since(start),
			}
		}

		status := monitoring.StatusUp
		var notes []string

		for _, job := range jobs {
			if job.TotalRuns == 0 {
				notes = append(notes, job.Job+": pending first run")
				continue
			}
			if job.ConsecutiveFailures > 0 {
				status = worstStatus(status, monitoring.StatusDegraded)
				notes = append(notes, job.Job+": "+job.LastError)
			}
			if start.Sub(job.LastRunAt) > maxAge {
				status = worstStatus(status, monitoring.StatusDegraded)
				notes = append(notes, job.Job+": stale run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.CheckResult{
			Status:   status,
			Details:  strings.Join(notes, "; "),
			Duration: time.Since(start),
		}
	})
}

func worstStatus(current, candidate monitoring.HealthStatus) monitoring.HealthStatus {
	if current == monitoring.StatusDown || candidate == monitoring.StatusDown {
		return monitoring.StatusDown
	}
	if current == monitoring.StatusDegraded || candidate == monitoring.StatusDegraded {
		return monitoring.StatusDegraded
	}
	return monitoring.StatusUp
}
