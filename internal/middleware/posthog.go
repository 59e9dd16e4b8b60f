package middleware

import (
	"net/http"
	"strings"

	"github.com/SscSPs/timesheet_app/internal/utils"
	"github.com/gin-gonic/gin"
)

// pathsToSkip contains routes that should not be tracked by PostHog.
// Transitions are published by the service itself, polling is too chatty.
var pathsToSkip = map[string]bool{
	"/health":                             true,
	"/api/v1/timesheet/status/poll":       true,
	"/api/v1/timesheet/clock-in":          true,
	"/api/v1/timesheet/clock-out":         true,
	"/api/v1/timesheet/breaks/start":      true,
	"/api/v1/timesheet/breaks/end":        true,
	"/api/v1/timesheet/unavailable/start": true,
	"/api/v1/timesheet/unavailable/end":   true,
}

// PosthogMiddleware creates a Gin middleware handler that tracks API reads with PostHog
func PosthogMiddleware(posthogClient *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if posthogClient == nil || !posthogClient.IsInitialized() || pathsToSkip[c.FullPath()] {
			c.Next()
			return
		}

		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		userID, exists := GetUserIDFromContext(c)
		if !exists {
			return
		}

		// "/api/v1/timesheet/history" -> "api_v1_timesheet_history"
		eventName := strings.TrimPrefix(c.FullPath(), "/")
		eventName = strings.ReplaceAll(eventName, "/", "_")
		if eventName == "" {
			return
		}

		posthogClient.Enqueue(userID, eventName, map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
		})
	}
}
