package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gammapace/backend/internal/config"
)

func newTestCatalog() *Catalog {
	return NewCatalog(config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()))
}

func TestCatalogList(t *testing.T) {
	catalog := newTestCatalog()

	plans := catalog.List()
	require.Len(t, plans, 3)

	assert.Equal(t, "weekly", plans[0].Type)
	assert.Equal(t, int64(999), plans[0].Amount)
	assert.Equal(t, "CAD", plans[0].Currency)
	assert.Equal(t, 7, plans[0].DurationDays)

	assert.Equal(t, "monthly", plans[1].Type)
	assert.Equal(t, int64(2499), plans[1].Amount)

	assert.Equal(t, "quarterly", plans[2].Type)
	assert.Equal(t, int64(5999), plans[2].Amount)
	assert.Equal(t, 90, plans[2].DurationDays)
}

func TestCatalogGet(t *testing.T) {
	catalog := newTestCatalog()

	p, err := catalog.Get("Monthly")
	require.NoError(t, err)
	assert.Equal(t, "monthly", p.Type)
	assert.Equal(t, int64(2499), p.Amount)

	_, err = catalog.Get("lifetime")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestCatalogEndDate(t *testing.T) {
	catalog := newTestCatalog()
	start := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	end, err := catalog.EndDate(start, "weekly")
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 7), end)

	end, err = catalog.EndDate(start, "quarterly")
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 90), end)

	_, err = catalog.EndDate(start, "yearly")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}
