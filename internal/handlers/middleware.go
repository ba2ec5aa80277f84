package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// accessLog emits one structured log line per request after it completes.
// The route template keeps cardinality low; unmatched paths fall back to
// the raw URL path.
func (h *Handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()

	if h.log == nil {
		return
	}
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	h.log.Infow("http_request",
		"method", c.Request.Method,
		"path", path,
		"status", c.Writer.Status(),
		"duration_ms", time.Since(start).Milliseconds(),
		"client_ip", c.ClientIP(),
	)
}
