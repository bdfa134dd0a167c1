package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig holds the subscription plan catalog and the fallback
// exchange rate table. Amounts are minor units of the base currency.
type PricingConfig struct {
	BaseCurrency  string             `mapstructure:"baseCurrency"`
	Plans         []PlanEntry        `mapstructure:"plans"`
	FallbackRates map[string]float64 `mapstructure:"fallbackRates"`
}

type PlanEntry struct {
	Type         string `mapstructure:"type"`
	DisplayName  string `mapstructure:"displayName"`
	Amount       int64  `mapstructure:"amount"`
	DurationDays int    `mapstructure:"durationDays"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		BaseCurrency: "CAD",
		Plans: []PlanEntry{
			{Type: "weekly", DisplayName: "Weekly", Amount: 999, DurationDays: 7},
			{Type: "monthly", DisplayName: "Monthly", Amount: 2499, DurationDays: 30},
			{Type: "quarterly", DisplayName: "Quarterly", Amount: 5999, DurationDays: 90},
		},
		FallbackRates: map[string]float64{
			"CAD": 1.0,
			"USD": 0.74,
			"GBP": 0.58,
			"EUR": 0.68,
			"AUD": 1.12,
			"JPY": 110.0,
			"KRW": 980.0,
			"SGD": 1.0,
			"HKD": 5.8,
			"INR": 62.0,
			"CNY": 5.3,
			"BRL": 3.7,
			"MXN": 13.2,
			"ARS": 265.0,
			"CLP": 650.0,
			"ZAR": 13.8,
			"NGN": 575.0,
			"NZD": 1.22,
			"CHF": 0.67,
			"SEK": 7.9,
			"NOK": 7.8,
			"DKK": 5.1,
		},
	}
}

// PricingConfigHolder serves the current pricing config and hot-reloads
// it when the underlying file changes.
type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

func NewPricingConfigHolder() (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/gammapace/config")
	v.AddConfigPath("/etc/gammapace")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GAMMAPACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPricingConfig()
		v.SetDefault("pricing.baseCurrency", defaults.BaseCurrency)
		v.SetDefault("pricing.plans", defaults.Plans)
		v.SetDefault("pricing.fallbackRates", defaults.FallbackRates)
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPricingConfigHolder serves a fixed config. Used in tests.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func validatePricingConfig(cfg PricingConfig) error {
	if strings.TrimSpace(cfg.BaseCurrency) == "" {
		return errors.New("pricing.baseCurrency cannot be empty")
	}
	if len(cfg.Plans) == 0 {
		return errors.New("pricing.plans cannot be empty")
	}
	if len(cfg.FallbackRates) == 0 {
		return errors.New("pricing.fallbackRates cannot be empty")
	}
	return nil
}
