package app

import (
	"github.com/osvaldoandrade/songbridge/internal/controllers"
	"github.com/osvaldoandrade/songbridge/internal/middleware"
	"github.com/osvaldoandrade/songbridge/pkg/domain"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupMappings(app *Application) {
	app.Engine.GET("/healthz", controllers.NewHealthController(app.Store).Handle)
	app.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := app.Engine.Group("/api")
	{
		// provider webhooks
		api.POST("/suno-callback", controllers.NewMusicCallbackController(app.Callbacks).Handle)
		api.POST("/lyrics-callback", controllers.NewLyricsCallbackController(app.Callbacks).Handle)
		cover := controllers.NewCoverCallbackController(app.Callbacks, app.Covers)
		api.POST("/cover-callback", cover.Handle)
		api.GET("/cover-callback", cover.Poll)

		api.GET("/music-stream", controllers.NewMusicStreamController(app.Dispatcher).Handle)

		throttle := func(kind domain.TaskKind) gin.HandlerFunc {
			return middleware.RateLimitGenerate(app.RateLimiter, app.RateLimits, kind)
		}
		api.POST("/generate-music", throttle(domain.KindMusic), controllers.NewGenerateMusicController(app.Generation).Handle)
		api.POST("/generate-lyrics", throttle(domain.KindLyrics), controllers.NewGenerateLyricsController(app.Generation).Handle)
		api.POST("/generate-cover", throttle(domain.KindCover), controllers.NewGenerateCoverController(app.Generation).Handle)

		api.GET("/status/:taskId", controllers.NewTaskStatusController(app.Generation).Handle)
		api.GET("/cover-status/:taskId", controllers.NewCoverStatusController(app.Covers).Handle)
		api.GET("/bridge-stats", controllers.NewBridgeStatsController(app.Stats).Handle)
	}
}
