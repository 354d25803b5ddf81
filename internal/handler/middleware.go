package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ianjiteshan/ShareSYNC/internal/apperr"
	"github.com/ianjiteshan/ShareSYNC/internal/ratelimit"
	"github.com/ianjiteshan/ShareSYNC/utils"
)

// RateLimit enforces one bucket of spec §4.5's tiered policy ahead of
// the handlers it guards. The subject is the caller's external id
// when authenticated, otherwise its hashed IP; the IP ceiling is
// checked unconditionally by Controller.Check regardless.
func RateLimit(controller *ratelimit.Controller, bucket ratelimit.Bucket) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := utils.CurrentPrincipal(c)
		ip := utils.ClientIPHash(c)
		subject := ip
		if principal.Authenticated {
			subject = principal.ExternalID
		}

		decision := controller.Check(c.Request.Context(), bucket, principal.Authenticated, subject, ip)
		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
			respondError(c, apperr.New(apperr.RateLimited, "rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}
