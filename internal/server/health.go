package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"service":     s.cfg.AppName,
		"version":     s.cfg.AppVersion,
		"environment": s.cfg.Environment,
		"stripe_configured": gin.H{
			"secret_key":     s.cfg.StripeSecretKey != "",
			"webhook_secret": s.cfg.StripeWebhookSecret != "",
		},
		"timestamp": s.clock.Now().UTC(),
	})
}
