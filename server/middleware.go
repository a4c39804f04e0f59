package server

import (
	"net/http"
	"strings"
	"time"

	"predictions/infrastructure/observability"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	ctxUserID = "user_id"
	ctxAdmin  = "admin"
)

// authRequired rejects requests without a valid bearer token
func authRequired(auth TokenAuth) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			abortWithError(c, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}

		claims, err := auth.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			log.WithError(err).Debug("Rejected bearer token")
			abortWithError(c, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "invalid token subject")
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxAdmin, claims.Admin)
		c.Next()
	}
}

// adminRequired must run after authRequired
func adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxAdmin) {
			abortWithError(c, http.StatusForbidden, "admin privileges required")
			return
		}
		c.Next()
	}
}

// requestLogger writes an access log line through logrus and records HTTP metrics
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)

		observability.GetMetrics().RecordHTTPRequest(c.Request.Method, route, status, duration)

		entry := log.WithFields(log.Fields{
			"method":      c.Request.Method,
			"route":       route,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"client_ip":   c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("HTTP request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("HTTP request rejected")
		default:
			entry.Debug("HTTP request served")
		}
	}
}
