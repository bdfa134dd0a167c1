package currency

import "strings"

// countryCurrencies maps both ISO 3166-1 alpha-2 codes and full country
// names to the local billing currency.
var countryCurrencies = map[string]string{
	"united states":  "USD",
	"canada":         "CAD",
	"united kingdom": "GBP",
	"australia":      "AUD",
	"germany":        "EUR",
	"france":         "EUR",
	"italy":          "EUR",
	"spain":          "EUR",
	"netherlands":    "EUR",
	"belgium":        "EUR",
	"austria":        "EUR",
	"ireland":        "EUR",
	"finland":        "EUR",
	"japan":          "JPY",
	"south korea":    "KRW",
	"singapore":      "SGD",
	"hong kong":      "HKD",
	"india":          "INR",
	"china":          "CNY",
	"brazil":         "BRL",
	"mexico":         "MXN",
	"argentina":      "ARS",
	"chile":          "CLP",
	"south africa":   "ZAR",
	"nigeria":        "NGN",
	"new zealand":    "NZD",
	"switzerland":    "CHF",
	"sweden":         "SEK",
	"norway":         "NOK",
	"denmark":        "DKK",

	"us": "USD",
	"ca": "CAD",
	"gb": "GBP",
	"uk": "GBP",
	"au": "AUD",
	"de": "EUR",
	"fr": "EUR",
	"it": "EUR",
	"es": "EUR",
	"nl": "EUR",
	"be": "EUR",
	"at": "EUR",
	"ie": "EUR",
	"fi": "EUR",
	"jp": "JPY",
	"kr": "KRW",
	"sg": "SGD",
	"hk": "HKD",
	"in": "INR",
	"cn": "CNY",
	"br": "BRL",
	"mx": "MXN",
	"ar": "ARS",
	"cl": "CLP",
	"za": "ZAR",
	"ng": "NGN",
	"nz": "NZD",
	"ch": "CHF",
	"se": "SEK",
	"no": "NOK",
	"dk": "DKK",
}

// ForCountry resolves a country, by code or full name, to its billing
// currency. Unlisted countries are billed in USD; an unknown country
// falls back to CAD.
func ForCountry(country string) string {
	normalized := strings.ToLower(strings.TrimSpace(country))
	if normalized == "" {
		return "CAD"
	}
	if currency, ok := countryCurrencies[normalized]; ok {
		return currency
	}
	return "USD"
}
