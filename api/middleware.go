package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swingdesk/swingdesk/errors"
	"github.com/swingdesk/swingdesk/logger"
)

const requestIDHeader = "X-Request-ID"

// Recovery converts panics into structured 500 responses.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panicked", logger.Fields(
					"panic", r,
					"path", c.Request.URL.Path,
				))
				c.AbortWithStatusJSON(500, errors.Internal(nil).ToResponse())
			}
		}()
		c.Next()
	}
}

// RequestID ensures every request carries an identifier, propagating a
// client-supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request completed", logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			logger.FieldStatus, c.Writer.Status(),
			logger.FieldDuration, time.Since(start).Milliseconds(),
			"request_id", c.GetString("request_id"),
		))
	}
}
