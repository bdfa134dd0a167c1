package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gammapace/backend/internal/observability/logger"
	paymentdomain "github.com/gammapace/backend/internal/payment/domain"
)

func (s *Server) CreatePaymentIntent(c *gin.Context) {
	ctx := c.Request.Context()

	res, err := s.limiter.Allow(ctx, c.ClientIP())
	if err != nil {
		// Fail open on limiter backend errors.
		logger.FromContext(ctx).Warn("payment rate limiter unavailable")
	}
	if !res.Allowed {
		retryAfter := int(res.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		s.metrics.RecordRateLimitDenied(ctx, "create-payment-intent")
		AbortWithError(c, ErrRateLimited)
		return
	}

	var req paymentdomain.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, paymentdomain.ErrMissingFields)
		return
	}

	resp, err := s.paymentSvc.CreateIntent(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidPayload)
		return
	}

	result, err := s.paymentSvc.HandleWebhook(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The provider retries anything but a 200, so duplicates and
	// ignored event types are acknowledged the same as handled ones.
	c.JSON(http.StatusOK, gin.H{
		"received":   true,
		"event_type": result.EventType,
		"timestamp":  s.clock.Now().UTC(),
	})
}
