package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preluvia/storefront/pkg/models"
)

type clientInfoRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	MersisNo    string `json:"mersis_no"`
	TaxNo       string `json:"tax_no"`
	Phone       string `json:"phone" binding:"required"`
	Email       string `json:"email"`
	Name        string `json:"name" binding:"required"`
	Address     string `json:"address" binding:"required"`
}

func (s *Server) listClientInfos(c *gin.Context) {
	claims := claimsFrom(c)
	infos, err := s.store.ClientInfos(c.Request.Context(), claims.UID)
	if err != nil {
		s.logger.Error("Failed to list client infos", zap.String("user_id", claims.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list client infos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"infos": infos, "total": len(infos)})
}

func (s *Server) createClientInfo(c *gin.Context) {
	claims := claimsFrom(c)
	var req clientInfoRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	info := models.ClientInfo{
		ID:          uuid.New().String(),
		UserID:      claims.UID,
		CompanyName: req.CompanyName,
		MersisNo:    req.MersisNo,
		TaxNo:       req.TaxNo,
		Phone:       req.Phone,
		Email:       req.Email,
		Name:        req.Name,
		Address:     req.Address,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateClientInfo(c.Request.Context(), &info); err != nil {
		s.logger.Error("Failed to create client info", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create client info"})
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) updateClientInfo(c *gin.Context) {
	claims := claimsFrom(c)
	id := c.Param("id")
	var req clientInfoRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	info, err := s.store.ClientInfo(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client info not found"})
			return
		}
		s.logger.Error("Failed to get client info", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get client info"})
		return
	}
	if info.UserID != claims.UID {
		c.JSON(http.StatusNotFound, gin.H{"error": "client info not found"})
		return
	}

	info.CompanyName = req.CompanyName
	info.MersisNo = req.MersisNo
	info.TaxNo = req.TaxNo
	info.Phone = req.Phone
	info.Email = req.Email
	info.Name = req.Name
	info.Address = req.Address
	info.UpdatedAt = time.Now()

	if err := s.store.SaveClientInfo(ctx, info); err != nil {
		s.logger.Error("Failed to save client info", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save client info"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// Deleting a profile never touches past orders; they hold copies.
func (s *Server) deleteClientInfo(c *gin.Context) {
	claims := claimsFrom(c)
	id := c.Param("id")

	ctx := c.Request.Context()
	info, err := s.store.ClientInfo(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client info not found"})
			return
		}
		s.logger.Error("Failed to get client info", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get client info"})
		return
	}
	if info.UserID != claims.UID {
		c.JSON(http.StatusNotFound, gin.H{"error": "client info not found"})
		return
	}

	if err := s.store.DeleteClientInfo(ctx, id); err != nil {
		s.logger.Error("Failed to delete client info", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete client info"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
