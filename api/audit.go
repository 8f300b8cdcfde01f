package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultAuditLimit = 50

// listAuditLogs returns the recorded lifecycle events for one order or
// product, newest first.
func (s *Server) listAuditLogs(c *gin.Context) {
	entityID := c.Param("id")

	limit := int64(defaultAuditLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	logs, err := s.audit.GetAuditLogs(c.Request.Context(), entityID, limit)
	if err != nil {
		s.logger.Error("Failed to load audit logs", zap.String("entity_id", entityID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": len(logs)})
}
