package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gammapace/backend/internal/currency"
	"github.com/gammapace/backend/internal/plan"
)

type localizedPlan struct {
	plan.Plan

	LocalAmount   int64  `json:"local_amount"`
	LocalCurrency string `json:"local_currency"`
}

// ListPlans returns the catalog priced in the caller's currency. Rate
// lookup failures degrade to base currency amounts rather than failing
// the request.
func (s *Server) ListPlans(c *gin.Context) {
	ctx := c.Request.Context()

	target := currency.ForCountry(c.Query("country"))
	plans := s.catalog.List()

	localized := make([]localizedPlan, 0, len(plans))
	for _, p := range plans {
		entry := localizedPlan{
			Plan:          p,
			LocalAmount:   p.Amount,
			LocalCurrency: p.Currency,
		}
		if amount, resolved, err := s.currencySvc.Convert(ctx, p.Amount, target); err == nil {
			entry.LocalAmount = amount
			entry.LocalCurrency = resolved
		}
		localized = append(localized, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"currency": target,
		"plans":    localized,
	})
}
