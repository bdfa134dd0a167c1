package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	admindomain "github.com/gammapace/backend/internal/admin/domain"
	analyticsdomain "github.com/gammapace/backend/internal/analytics/domain"
	currencydomain "github.com/gammapace/backend/internal/currency"
	paymentdomain "github.com/gammapace/backend/internal/payment/domain"
	plandomain "github.com/gammapace/backend/internal/plan"
	sessiondomain "github.com/gammapace/backend/internal/session/domain"
	userdomain "github.com/gammapace/backend/internal/user/domain"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, body := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, body)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError renders one JSON error body per request. Payment errors keep
// the response shapes the billing frontend already consumes.
func mapError(err error) (int, gin.H) {
	var provider *paymentdomain.ProviderError
	if errors.As(err, &provider) {
		body := gin.H{
			"success": false,
			"error":   provider.Message,
			"type":    provider.Type,
		}
		if provider.DeclineCode != "" {
			body["decline_code"] = provider.DeclineCode
		}
		if provider.Type == paymentdomain.ErrorTypeAPI {
			return http.StatusInternalServerError, body
		}
		return http.StatusBadRequest, body
	}

	var intentStatus *paymentdomain.IntentStatusError
	if errors.As(err, &intentStatus) {
		return http.StatusBadRequest, gin.H{
			"success": false,
			"error":   intentStatus.Message,
			"payment_intent": gin.H{
				"id":     intentStatus.Intent.ID,
				"status": intentStatus.Intent.Status,
			},
		}
	}

	var conflict *sessiondomain.ConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, gin.H{
			"success":         false,
			"error":           "session_conflict",
			"active_session":  conflict.Existing,
			"conflict_window": sessiondomain.StaleAfter.String(),
		}
	}

	switch {
	case errors.Is(err, paymentdomain.ErrMissingFields):
		return http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Missing required fields: amount, currency, payment_method_id, customer_name, customer_email, plan_type",
		}

	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusBadRequest, gin.H{"error": "invalid signature"}

	case errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent):
		return http.StatusBadRequest, gin.H{"error": "invalid payload"}

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, userdomain.ErrInvalidPassword),
		errors.Is(err, analyticsdomain.ErrInvalidEventType),
		errors.Is(err, admindomain.ErrMissingFields),
		errors.Is(err, plandomain.ErrUnknownPlan):
		return http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		}

	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, userdomain.ErrInvalidCredentials),
		errors.Is(err, sessiondomain.ErrSessionExpired),
		errors.Is(err, sessiondomain.ErrNotFound):
		return http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "unauthorized",
		}

	case errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, admindomain.ErrCouponTaken):
		return http.StatusConflict, gin.H{
			"success": false,
			"error":   err.Error(),
		}

	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, admindomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, gin.H{
			"success": false,
			"error":   "not_found",
		}

	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, gin.H{
			"success": false,
			"error":   "Too many payment attempts. Please try again shortly.",
		}

	case errors.Is(err, currencydomain.ErrNoRates):
		return http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "exchange rates unavailable",
		}

	default:
		return http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger's error_type/error_code
// fields.
func classifyErrorForLog(err error) (string, string) {
	status, _ := mapError(err)
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited", "rate_limited"
	case status == http.StatusUnauthorized:
		return "unauthorized", "unauthorized"
	case status >= 500:
		return "internal", "internal_error"
	case status >= 400:
		return "client", "invalid_request"
	default:
		return "", ""
	}
}
