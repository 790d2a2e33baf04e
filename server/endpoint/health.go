package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/pipekit/observability"
)

// Health returns a handler that aggregates the given checkers into a
// ServiceHealth report. A component reporting down turns the response into
// a 503.
func Health(service, version string, checkers ...observability.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := observability.NewServiceHealth(service, version)
		for _, checker := range checkers {
			report.AddComponent(checker.CheckHealth(c.Request.Context()))
		}

		status := http.StatusOK
		if report.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}
