package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/image-watermark/internal/models"
)

// BodyLimit caps the request body at maxBytes. Requests that announce a
// larger body are rejected up front; others fail with *http.MaxBytesError
// once the handler reads past the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.ContentLength > maxBytes {
			ctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, models.APIResponse{
				Success: false,
				Error:   "Request body too large",
			})
			return
		}
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes)
		ctx.Next()
	}
}
