package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const lookupTimeout = 5 * time.Second

var errNoLocation = errors.New("no usable location")

// IPAPICoProvider resolves locations via the ipapi.co JSON endpoint.
type IPAPICoProvider struct {
	baseURL string
	client  *http.Client
}

func NewIPAPICoProvider(baseURL string) *IPAPICoProvider {
	if baseURL == "" {
		baseURL = "https://ipapi.co"
	}
	return &IPAPICoProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: lookupTimeout},
	}
}

func (p *IPAPICoProvider) Name() string { return "ipapi.co" }

func (p *IPAPICoProvider) Lookup(ctx context.Context, q Query) (Location, error) {
	if q.IP == "" {
		return Location{}, errNoLocation
	}

	var payload struct {
		IP          string  `json:"ip"`
		City        string  `json:"city"`
		Region      string  `json:"region"`
		CountryName string  `json:"country_name"`
		CountryCode string  `json:"country_code"`
		Timezone    string  `json:"timezone"`
		Postal      string  `json:"postal"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		Error       bool    `json:"error"`
	}
	endpoint := fmt.Sprintf("%s/%s/json/", p.baseURL, url.PathEscape(q.IP))
	if err := getJSON(ctx, p.client, endpoint, &payload); err != nil {
		return Location{}, err
	}
	if payload.Error || payload.City == "" || payload.CountryName == "" {
		return Location{}, errNoLocation
	}

	return Location{
		IP:          payload.IP,
		City:        payload.City,
		Region:      payload.Region,
		Country:     payload.CountryName,
		CountryCode: payload.CountryCode,
		Timezone:    payload.Timezone,
		Postal:      payload.Postal,
		Latitude:    payload.Latitude,
		Longitude:   payload.Longitude,
		Accuracy:    "city",
		Source:      p.Name(),
	}, nil
}

// IPAPIComProvider resolves locations via the ip-api.com JSON endpoint.
type IPAPIComProvider struct {
	baseURL string
	client  *http.Client
}

func NewIPAPIComProvider(baseURL string) *IPAPIComProvider {
	if baseURL == "" {
		baseURL = "http://ip-api.com"
	}
	return &IPAPIComProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: lookupTimeout},
	}
}

func (p *IPAPIComProvider) Name() string { return "ip-api.com" }

func (p *IPAPIComProvider) Lookup(ctx context.Context, q Query) (Location, error) {
	if q.IP == "" {
		return Location{}, errNoLocation
	}

	var payload struct {
		Status      string  `json:"status"`
		Query       string  `json:"query"`
		City        string  `json:"city"`
		RegionName  string  `json:"regionName"`
		Country     string  `json:"country"`
		CountryCode string  `json:"countryCode"`
		Timezone    string  `json:"timezone"`
		Zip         string  `json:"zip"`
		Lat         float64 `json:"lat"`
		Lon         float64 `json:"lon"`
	}
	endpoint := fmt.Sprintf("%s/json/%s", p.baseURL, url.PathEscape(q.IP))
	if err := getJSON(ctx, p.client, endpoint, &payload); err != nil {
		return Location{}, err
	}
	if payload.Status != "success" || payload.City == "" || payload.Country == "" {
		return Location{}, errNoLocation
	}

	return Location{
		IP:          payload.Query,
		City:        payload.City,
		Region:      payload.RegionName,
		Country:     payload.Country,
		CountryCode: payload.CountryCode,
		Timezone:    payload.Timezone,
		Postal:      payload.Zip,
		Latitude:    payload.Lat,
		Longitude:   payload.Lon,
		Accuracy:    "city",
		Source:      p.Name(),
	}, nil
}

// timezoneLocations maps common IANA timezones to approximate locations.
var timezoneLocations = map[string]Location{
	"America/New_York":    {City: "New York", Country: "United States", CountryCode: "US"},
	"America/Los_Angeles": {City: "Los Angeles", Country: "United States", CountryCode: "US"},
	"America/Toronto":     {City: "Toronto", Country: "Canada", CountryCode: "CA"},
	"America/Vancouver":   {City: "Vancouver", Country: "Canada", CountryCode: "CA"},
	"Europe/London":       {City: "London", Country: "United Kingdom", CountryCode: "GB"},
	"Europe/Paris":        {City: "Paris", Country: "France", CountryCode: "FR"},
	"Asia/Tokyo":          {City: "Tokyo", Country: "Japan", CountryCode: "JP"},
	"Asia/Shanghai":       {City: "Shanghai", Country: "China", CountryCode: "CN"},
	"Asia/Mumbai":         {City: "Mumbai", Country: "India", CountryCode: "IN"},
	"Asia/Kolkata":        {City: "Kolkata", Country: "India", CountryCode: "IN"},
	"Australia/Sydney":    {City: "Sydney", Country: "Australia", CountryCode: "AU"},
}

// TimezoneProvider approximates a location from a client-supplied IANA
// timezone. It needs no network and sits last in the chain.
type TimezoneProvider struct{}

func NewTimezoneProvider() *TimezoneProvider { return &TimezoneProvider{} }

func (p *TimezoneProvider) Name() string { return "timezone" }

func (p *TimezoneProvider) Lookup(_ context.Context, q Query) (Location, error) {
	tz := strings.TrimSpace(q.Timezone)
	if tz == "" {
		return Location{}, errNoLocation
	}

	loc, ok := timezoneLocations[tz]
	if !ok {
		// Timezone alone still narrows the user down to a region.
		return Location{Timezone: tz, Accuracy: "timezone", Source: p.Name()}, nil
	}
	loc.Timezone = tz
	loc.Accuracy = "timezone"
	loc.Source = p.Name()
	return loc, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
