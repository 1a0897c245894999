package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"Lee_Social/internal/observability"

	"github.com/gin-gonic/gin"
)

// RequestLogger 每个请求一行日志，同时记录请求计数
func RequestLogger(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.ObserveRequest(route, strconv.Itoa(status))

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency", time.Since(start),
			"user_id", UserID(c),
			"client_ip", c.ClientIP(),
		)
	}
}
