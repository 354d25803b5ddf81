// Package router composes the gin engine from internal/handler's
// routes, grounded on teacher's router/router.go tree shape: a CORS
// layer, a principal-resolution layer, then route groups split by
// authentication requirement.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ianjiteshan/ShareSYNC/internal/handler"
	"github.com/ianjiteshan/ShareSYNC/internal/logging"
	"github.com/ianjiteshan/ShareSYNC/internal/ratelimit"
	"github.com/ianjiteshan/ShareSYNC/internal/signal"
	"github.com/ianjiteshan/ShareSYNC/utils"
)

// Deps bundles everything the route tree needs to build its handlers
// and middleware.
type Deps struct {
	Handler   *handler.Handler
	Limiter   *ratelimit.Controller
	Hub       *signal.Hub
	Logger    *logrus.Logger
	JWTSecret string
}

// InitRouter builds the full route tree spec §4.6 names, plus the
// liveness/metrics endpoints and the signaling upgrade.
func InitRouter(deps Deps) *gin.Engine {
	r := gin.Default()
	r.Use(logging.Middleware(deps.Logger))
	r.Use(utils.CORSMiddleware())
	r.Use(utils.ResolvePrincipal(deps.JWTSecret))

	r.GET("/health", handler.Health)
	r.GET("/metrics", handler.Metrics())

	r.GET("/ws/signal", func(c *gin.Context) {
		principal := utils.CurrentPrincipal(c)
		signal.HandleWebSocket(deps.Hub, principal.Authenticated, utils.ClientIPHash(c))(c.Writer, c.Request)
	})

	api := r.Group("")
	{
		upload := api.Group("/upload")
		upload.Use(handler.RateLimit(deps.Limiter, ratelimit.BucketUpload))
		upload.POST("/presign", deps.Handler.PresignUpload)
		upload.POST("/finalize", deps.Handler.FinalizeUpload)

		share := api.Group("/share")
		share.Use(handler.RateLimit(deps.Limiter, ratelimit.BucketAPI))
		share.GET("/:share_id", deps.Handler.GetShareMetadata)
		share.POST("/:share_id/password", deps.Handler.SetSharePassword)

		download := api.Group("/share")
		download.Use(
			handler.RateLimit(deps.Limiter, ratelimit.BucketDownload),
			handler.RateLimit(deps.Limiter, ratelimit.BucketAuth),
		)
		download.POST("/:share_id/download", deps.Handler.DownloadShare)

		files := api.Group("/files")
		files.Use(utils.RequireAuth(), handler.RateLimit(deps.Limiter, ratelimit.BucketAPI))
		files.GET("", deps.Handler.ListFiles)
		files.DELETE("/:share_id", deps.Handler.RevokeFile)
	}

	return r
}
