package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jobhive/jobhive/internal/monitoring"
	"github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/logger"
	"github.com/jobhive/jobhive/pkg/response"
)

// Health reports readiness. A component that is down, the grant store in
// particular, fails the check with a retryable 503. Degraded components are
// listed but keep the service ready.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.EvaluateReadiness(requestContext(c))
		if report.Status == monitoring.StatusDown {
			var failed []string
			for _, check := range report.Checks {
				if check.Status == monitoring.StatusDown {
					failed = append(failed, check.Component+": "+check.Details)
				}
			}
			detail := strings.Join(failed, "; ")
			logger.WithModule("health").Warn("readiness check failed", zap.String("details", detail))
			response.Error(c, errors.NewTransient(stderrors.New(detail)))
			return
		}

		response.Success(c, http.StatusOK, gin.H{"status": report.Status, "checks": report.Checks})
	}
}

// Liveness reports that the process is serving requests.
func Liveness(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.EvaluateLiveness(requestContext(c))
		status := http.StatusOK
		if !report.Success {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, response.Response{Success: report.Success, Data: gin.H{"status": report.Status}})
	}
}
