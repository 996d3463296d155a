package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/image-watermark/internal/metrics"
)

// Metrics records request counts and latencies by route template.
func Metrics() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(ctx.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(ctx.Request.Method, status, path).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(ctx.Request.Method, status, path).Observe(time.Since(start).Seconds())
	}
}
