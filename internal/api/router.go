package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/timeline-core/internal/config"
	"github.com/jengzang/timeline-core/internal/handler"
	"github.com/jengzang/timeline-core/internal/middleware"
)

// SetupRouter wires the operator HTTP surface: health check, read-only
// timeline inspection, and the JWT-gated reprocess trigger.
func SetupRouter(cfg *config.Config, timelineHandler *handler.TimelineHandler) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.Logger())
	r.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateLimitWindow))

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "timeline-core is running",
		})
	})

	v1 := r.Group("/api/v1")
	{
		tl := v1.Group("/timeline")
		{
			tl.GET("/items", timelineHandler.GetItems)
			tl.POST("/reprocess", middleware.AdminAuth(cfg.JWTSecret), timelineHandler.Reprocess)
		}
	}

	return r
}
