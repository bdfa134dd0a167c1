package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gammapace/backend/internal/config"
)

// RateProvider supplies a rates snapshot relative to the base currency.
// Providers are consulted in order; the first one that succeeds wins.
type RateProvider interface {
	Name() string
	Fetch(ctx context.Context) (Rates, error)
}

// APIProvider fetches live rates from an exchangerate.host compatible
// endpoint.
type APIProvider struct {
	baseURL      string
	baseCurrency string
	symbols      []string
	client       *http.Client
}

func NewAPIProvider(baseURL, baseCurrency string, symbols []string) *APIProvider {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return &APIProvider{
		baseURL:      strings.TrimRight(baseURL, "/"),
		baseCurrency: baseCurrency,
		symbols:      sorted,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *APIProvider) Name() string { return "exchange-rate-api" }

func (p *APIProvider) Fetch(ctx context.Context) (Rates, error) {
	endpoint := fmt.Sprintf("%s/latest?base=%s&symbols=%s",
		p.baseURL,
		url.QueryEscape(p.baseCurrency),
		url.QueryEscape(strings.Join(p.symbols, ",")),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch rates: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Success bool               `json:"success"`
		Rates   map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if !payload.Success || len(payload.Rates) == 0 {
		return nil, errors.New("fetch rates: invalid response format")
	}

	rates := make(Rates, len(payload.Rates)+1)
	for code, rate := range payload.Rates {
		rates[strings.ToUpper(code)] = rate
	}
	// The base currency always converts to itself.
	rates[strings.ToUpper(p.baseCurrency)] = 1.0

	return rates, nil
}

// TableProvider serves the static fallback rate table from the pricing
// config. It never fails and must therefore be last in the chain.
type TableProvider struct {
	pricing *config.PricingConfigHolder
}

func NewTableProvider(pricing *config.PricingConfigHolder) *TableProvider {
	return &TableProvider{pricing: pricing}
}

func (p *TableProvider) Name() string { return "fallback-table" }

func (p *TableProvider) Fetch(_ context.Context) (Rates, error) {
	table := p.pricing.Get().FallbackRates
	rates := make(Rates, len(table))
	for code, rate := range table {
		rates[strings.ToUpper(code)] = rate
	}
	return rates, nil
}
