package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/agriscore/internal/server/handlers"
	"github.com/mamadbah2/agriscore/internal/server/middleware"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.Handler, auth *middleware.Auth, requestTimeout time.Duration, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", timeoutMiddleware(requestTimeout), auth.RequireAuth())
	api.POST("/actions", handler.LogAction)
	api.GET("/weed-risk", handler.WeedRisk)
	api.GET("/crops/switch-suggestion", handler.SwitchSuggestion)
	api.POST("/crops/compare", handler.CompareCrops)
	api.GET("/reports", handler.MonthlyReport)
	api.POST("/reports/generate", handler.GenerateReport)
	api.GET("/dashboard/summary", handler.DashboardSummary)
	api.GET("/alerts", handler.Alerts)
	api.POST("/assistant/query", handler.AssistantQuery)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

// timeoutMiddleware bounds every downstream store call by the request deadline.
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_id", middleware.UserID(c)))
	}
}
