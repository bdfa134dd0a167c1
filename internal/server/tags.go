package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	analyticsdomain "github.com/gammapace/backend/internal/analytics/domain"
	sessiondomain "github.com/gammapace/backend/internal/session/domain"
)

// RecordTag accepts analytics events from signed-in and anonymous
// clients alike; a valid bearer token attributes the event to the user.
func (s *Server) RecordTag(c *gin.Context) {
	var req analyticsdomain.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	// Attribution comes from the session token, never the body.
	req.UserID = 0
	if token := bearerToken(c); token != "" {
		if session, err := s.sessionSvc.Validate(ctx, token); err == nil {
			req.UserID = session.UserID
		}
	}

	tag, err := s.analyticsSvc.Record(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "tag": tag})
}

func (s *Server) ListTags(c *gin.Context) {
	session := c.MustGet(contextSessionKey).(sessiondomain.ActiveSession)

	limit, _ := strconv.Atoi(c.Query("limit"))
	tags, err := s.analyticsSvc.List(c.Request.Context(), analyticsdomain.ListFilter{
		UserID:    session.UserID,
		EventType: c.Query("event_type"),
		Limit:     limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tags": tags})
}
