package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 carrying the trace ID. A
// panic with http.ErrAbortHandler means the client went away; it is logged
// quietly and nothing is written.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			fields := []zap.Field{
				zap.String("trace_id", GetTraceID(c)),
				zap.String("room", Room(c)),
				zap.String("path", c.Request.URL.Path),
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				log.Debug("client aborted", fields...)
				c.Abort()
				return
			}
			log.Error("panic recovered", append(fields, zap.Any("error", r), zap.Stack("stack"))...)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":    "internal server error",
				"trace_id": GetTraceID(c),
			})
		}()
		c.Next()
	}
}
