package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gammapace/backend/internal/config"
)

// ErrUnknownPlan is returned when a plan type is not in the catalog.
var ErrUnknownPlan = errors.New("unknown plan type")

// Plan is a purchasable subscription plan. Amount is in minor units of
// Currency.
type Plan struct {
	Type         string `json:"plan_type"`
	DisplayName  string `json:"display_name"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	DurationDays int    `json:"duration_days"`
}

// Catalog serves the current plan catalog. Plans are read from the
// pricing config holder on every call so hot reloads take effect
// without restart.
type Catalog struct {
	pricing *config.PricingConfigHolder
}

func NewCatalog(pricing *config.PricingConfigHolder) *Catalog {
	return &Catalog{pricing: pricing}
}

// List returns all plans priced in the base currency.
func (c *Catalog) List() []Plan {
	cfg := c.pricing.Get()
	plans := make([]Plan, 0, len(cfg.Plans))
	for _, entry := range cfg.Plans {
		plans = append(plans, Plan{
			Type:         entry.Type,
			DisplayName:  entry.DisplayName,
			Amount:       entry.Amount,
			Currency:     cfg.BaseCurrency,
			DurationDays: entry.DurationDays,
		})
	}
	return plans
}

// Get looks up a single plan by type.
func (c *Catalog) Get(planType string) (Plan, error) {
	normalized := strings.ToLower(strings.TrimSpace(planType))
	for _, p := range c.List() {
		if p.Type == normalized {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, planType)
}

// EndDate computes when a subscription started at the given time ends.
func (c *Catalog) EndDate(start time.Time, planType string) (time.Time, error) {
	p, err := c.Get(planType)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 0, p.DurationDays), nil
}

// BaseCurrency returns the currency the catalog is priced in.
func (c *Catalog) BaseCurrency() string {
	return c.pricing.Get().BaseCurrency
}
