// Package router assembles the gin engine.
package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"announcement_syncer/internal/api/handler"
	"announcement_syncer/internal/api/middleware"
)

type Config struct {
	MaxUploadBytes int64
}

// Setup registers every route. Listing endpoints are public; sync, publish,
// credential and upload routes require a bearer token.
func Setup(cfg Config, h *handler.Handler, tokens middleware.TokenParser, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/departments", h.Department.List)
		v1.GET("/announcements", h.Announcement.List)

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(tokens))
		{
			sync := authorized.Group("/sync")
			{
				sync.POST("", h.Sync.Sync)
				sync.POST("/all", h.Sync.SyncAll)
				sync.GET("/state/:departmentKey", h.Sync.State)
			}

			authorized.POST("/posts", h.Post.Create)
			authorized.PUT("/credentials/naver", h.Credential.SaveNaver)

			if h.Upload != nil {
				authorized.POST("/upload", middleware.BodyLimit(cfg.MaxUploadBytes), h.Upload.Upload)
			}
		}
	}

	return r
}
