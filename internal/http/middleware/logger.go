package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Logger(logger *zap.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(params gin.LogFormatterParams) string {
		fields := []zap.Field{
			zap.String("method", params.Method),
			zap.String("path", params.Path),
			zap.Int("status", params.StatusCode),
			zap.Duration("latency", params.Latency),
			zap.String("client_ip", params.ClientIP),
			zap.String("user_agent", params.Request.UserAgent()),
			zap.Int("body_size", params.BodySize),
		}
		if params.ErrorMessage != "" {
			fields = append(fields, zap.String("error", params.ErrorMessage))
		}

		if params.StatusCode >= 500 {
			logger.Error("HTTP Request", fields...)
		} else {
			logger.Info("HTTP Request", fields...)
		}
		return ""
	})
}
