package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadyFunc reports whether the service can take work, with a reason when
// it cannot.
type ReadyFunc func(ctx context.Context) (bool, string)

// Readiness answers 200 when ready and 503 otherwise. A nil ReadyFunc is
// always ready.
func Readiness(serviceName string, ready ReadyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":    "ready",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if ready != nil {
			if ok, reason := ready(c.Request.Context()); !ok {
				body["status"] = "not_ready"
				if reason != "" {
					body["reason"] = reason
				}
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
