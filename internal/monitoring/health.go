package monitoring

import (
	"context"
	"errors"
	"time"
)

// HealthStatus encodes the outcome of a health check.
type HealthStatus string

const (
	StatusUp       HealthStatus = "up"
	StatusDown     HealthStatus = "down"
	StatusDegraded HealthStatus = "degraded"
)

// CheckResult captures a single dependency check outcome.
type CheckResult struct {
	Component string        `json:"component"`
	Status    HealthStatus  `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates check results for a liveness or readiness evaluation.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  HealthStatus  `json:"status"`
	Checks  []CheckResult `json:"checks"`
}

// Check encapsulates a single dependency check.
type Check struct {
	Name string
	Run  func(ctx context.Context) CheckResult
}

// NewCheck constructs a health check with the provided name and function.
func NewCheck(name string, fn func(ctx context.Context) CheckResult) Check {
	if fn == nil {
		fn = func(context.Context) CheckResult {
			return CheckResult{Status: StatusDown, Details: "check not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// HealthManager coordinates liveness and readiness checks.
type HealthManager struct {
	livenessChecks  []Check
	readinessChecks []Check
}

// NewHealthManager constructs an empty health manager.
func NewHealthManager() *HealthManager {
	return &HealthManager{}
}

// RegisterLiveness appends a liveness check.
func (m *HealthManager) RegisterLiveness(check Check) {
	if check.Name == "" {
		return
	}
	m.livenessChecks = append(m.livenessChecks, check)
}

// RegisterReadiness appends a readiness check.
func (m *HealthManager) RegisterReadiness(check Check) {
	if check.Name == "" {
		return
	}
	m.readinessChecks = append(m.readinessChecks, check)
}

// EvaluateLiveness executes all configured liveness checks.
func (m *HealthManager) EvaluateLiveness(ctx context.Context) HealthReport {
	return evaluate(ctx, m.livenessChecks)
}

// EvaluateReadiness executes all configured readiness checks. A degraded
// dependency marks the report unsuccessful without taking the service down.
func (m *HealthManager) EvaluateReadiness(ctx context.Context) HealthReport {
	return evaluate(ctx, m.readinessChecks)
}

func evaluate(ctx context.Context, checks []Check) HealthReport {
	report := HealthReport{
		Success: true,
		Status:  StatusUp,
		Checks:  make([]CheckResult, 0, len(checks)),
	}

	for _, check := range checks {
		result := runCheck(ctx, check)
		report.Checks = append(report.Checks, result)

		switch result.Status {
		case StatusDown:
			report.Success = false
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status != StatusDown {
				report.Success = false
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func runCheck(ctx context.Context, check Check) (result CheckResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			details := "panic recovered"
			switch v := rec.(type) {
			case string:
				details = v
			case error:
				details = v.Error()
			}
			result = CheckResult{Status: StatusDown, Details: details, Duration: time.Since(start)}
		}
		result.Component = check.Name
	}()

	result = check.Run(ctx)
	if result.Status == "" {
		result.Status = StatusDown
	}
	if result.Duration == 0 {
		result.Duration = time.Since(start)
	}
	return result
}

// ResultFromError converts an error into a CheckResult. Timeouts count as degraded.
func ResultFromError(component string, err error, duration time.Duration) CheckResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return CheckResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}

	return CheckResult{
		Component: component,
		Status:    status,
		Details:   err.Error(),
		Duration:  duration,
	}
}
