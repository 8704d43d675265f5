package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"posrecon/internal/importer"
)

// StartRun POST /api/runs?report_date=YYYY-MM-DD
// Runs the daily import and streams its progress over SSE. Without report_date the previous day is used.
func (h *Handler) StartRun(c *gin.Context) {
	date := time.Now().In(h.cfg.Run.Location()).AddDate(0, 0, -1)
	if v := c.Query("report_date"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		date = d
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	if !h.running.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "Đang có một lượt xử lý khác, vui lòng thử lại sau."})
		return
	}
	defer h.running.Store(false)

	send, ok := startSSE(c)
	if !ok {
		return
	}

	progress := h.coordinator.Run(c.Request.Context(), importer.RunOptions{Date: date})
	for event := range progress {
		send(event)
	}
}

// RequireInternalKey guards internal routes with the X-Internal-Api-Key header.
// An empty key disables the routes entirely.
func RequireInternalKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		got := c.GetHeader("X-Internal-Api-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
