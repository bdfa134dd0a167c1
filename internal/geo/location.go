package geo

import "context"

// Location is the uniform result every provider resolves to.
type Location struct {
	IP          string  `json:"ip,omitempty"`
	City        string  `json:"city,omitempty"`
	Region      string  `json:"region,omitempty"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	Postal      string  `json:"postal,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	Accuracy    string  `json:"accuracy,omitempty"`
	Source      string  `json:"source,omitempty"`
}

// Usable reports whether the result carries enough detail to act on.
func (l Location) Usable() bool {
	return l.Country != "" || l.CountryCode != "" || l.Timezone != ""
}

// Query carries the hints a lookup can work from.
type Query struct {
	IP       string
	Timezone string
}

// Provider resolves a query to a location. Providers are consulted in
// order; the first usable result wins.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, q Query) (Location, error)
}
