package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	admindomain "github.com/gammapace/backend/internal/admin/domain"
	sessiondomain "github.com/gammapace/backend/internal/session/domain"
)

// CreateAdmin registers a back-office account. The created_by field is
// stamped from the caller's session, never from the request body.
func (s *Server) CreateAdmin(c *gin.Context) {
	var req admindomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	session := c.MustGet(contextSessionKey).(sessiondomain.ActiveSession)
	req.CreatedBy = ""
	if caller, err := s.userSvc.GetByID(ctx, session.UserID); err == nil {
		req.CreatedBy = caller.Email
	}

	admin, err := s.adminSvc.Create(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "admin": admin})
}

func (s *Server) ListAdmins(c *gin.Context) {
	admins, err := s.adminSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "admins": admins})
}

func (s *Server) AdminStats(c *gin.Context) {
	stats, err := s.adminSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (s *Server) GetAdminByCoupon(c *gin.Context) {
	admin, err := s.adminSvc.GetByCoupon(c.Request.Context(), c.Param("coupon"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "admin": admin})
}
