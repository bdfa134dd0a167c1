package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gammapace/backend/internal/observability/obscontext"
)

const contextSessionKey = "active_session"

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// SessionRequired resolves the session token and rejects requests whose
// session is missing or stale.
func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.sessionSvc.Validate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithUserID(c.Request.Context(), session.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextSessionKey, session)
		c.Next()
	}
}
