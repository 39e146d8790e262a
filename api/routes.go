package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"adbdeck/adb"
	"adbdeck/service"
)

// Deps are the services the HTTP surface drives.
type Deps struct {
	Devices  *service.DeviceManager
	Jobs     *service.Jobs
	Client   *adb.ADBClient
	Enricher *service.Enricher
	History  *service.HistoryStore
	Hub      *WebSocketHub
	// Context bounds background work started by requests, such as label
	// enrichment. Defaults to context.Background.
	Context context.Context
	Log     zerolog.Logger
}

func SetupRoutes(router *gin.Engine, d Deps) {
	if d.Context == nil {
		d.Context = context.Background()
	}
	router.Use(RequestLogger(d.Log), gin.Recovery(), CORSMiddleware())

	router.GET("/health", func(c *gin.Context) {
		Health(c, d)
	})

	api := router.Group("/api")
	{
		devices := api.Group("/devices")
		{
			devices.GET("", func(c *gin.Context) {
				GetDevices(c, d.Devices)
			})
			devices.POST("/scan", func(c *gin.Context) {
				ScanDevices(c, d.Devices)
			})
			devices.PUT("/selected", func(c *gin.Context) {
				SelectDevice(c, d.Devices)
			})
			devices.GET("/:id", func(c *gin.Context) {
				GetDevice(c, d.Devices)
			})
			devices.GET("/:id/packages", func(c *gin.Context) {
				GetPackages(c, d)
			})
			devices.GET("/:id/packages/:pkg", func(c *gin.Context) {
				GetAppDetails(c, d.Client)
			})
			devices.GET("/:id/files", func(c *gin.Context) {
				ListFiles(c, d.Client)
			})
			devices.POST("/:id/files/mkdir", func(c *gin.Context) {
				MakeDir(c, d.Client)
			})
			devices.POST("/:id/files/push", func(c *gin.Context) {
				PushFiles(c, d.Client)
			})
		}

		actions := api.Group("/actions")
		{
			actions.GET("", GetActions)
			actions.POST("/:id", func(c *gin.Context) {
				RunAction(c, d.Jobs)
			})
		}

		api.GET("/history", func(c *gin.Context) {
			GetHistory(c, d.History)
		})
	}

	router.GET("/ws", func(c *gin.Context) {
		HandleWebSocket(d.Hub, c)
	})
}

// CORSMiddleware answers preflight requests from local pages only.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowedOrigin(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		case c.Request.URL.Path == "/health":
			ev = log.Debug()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
