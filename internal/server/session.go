package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	sessiondomain "github.com/gammapace/backend/internal/session/domain"
)

func (s *Server) Heartbeat(c *gin.Context) {
	if err := s.sessionSvc.Heartbeat(c.Request.Context(), bearerToken(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ValidateSession confirms the caller's session is still live and
// reports subscription standing for the client's access gating.
func (s *Server) ValidateSession(c *gin.Context) {
	session := c.MustGet(contextSessionKey).(sessiondomain.ActiveSession)

	user, err := s.userSvc.GetByID(c.Request.Context(), session.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session":    session,
		"subscribed": user.Subscribed(s.clock.Now()),
	})
}
