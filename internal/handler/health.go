package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health implements GET /health: a bare liveness probe, no
// dependency pings — readiness is left to the orchestrator's own
// TCP/DB checks against the sibling ports.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Metrics implements GET /metrics, exposing the promauto collectors
// registered in internal/metrics.
func Metrics() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
