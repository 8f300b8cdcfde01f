package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/preluvia/storefront/pkg/stats"
)

// The back-office has no stored client entity; both endpoints below fold the
// full orders collection on every request. Fine at this catalog's size.

func (s *Server) listClients(c *gin.Context) {
	orders, err := s.orders.Orders(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list clients"})
		return
	}
	clients := stats.SummarizeClients(orders)
	c.JSON(http.StatusOK, gin.H{"clients": clients, "total": len(clients)})
}

func (s *Server) getClient(c *gin.Context) {
	userID := c.Param("id")
	ctx := c.Request.Context()

	orders, err := s.orders.OrdersByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load client"})
		return
	}
	if len(orders) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	summaries := stats.SummarizeClients(orders)
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = orderJSON(o)
	}
	resp := gin.H{
		"client": summaries[0],
		"orders": out,
	}
	// Account record exists once the client has checked out at least once.
	if u, err := s.store.User(ctx, userID); err == nil {
		resp["account"] = u
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) revenueStats(c *gin.Context) {
	orders, err := s.orders.Orders(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats.Summarize(orders))
}
