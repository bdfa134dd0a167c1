package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIPAPICoProviderLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.7/json/", r.URL.Path)
		w.Write([]byte(`{"ip":"203.0.113.7","city":"Toronto","region":"Ontario","country_name":"Canada","country_code":"CA","timezone":"America/Toronto","postal":"M5V","latitude":43.65,"longitude":-79.38}`))
	}))
	defer server.Close()

	provider := NewIPAPICoProvider(server.URL)

	loc, err := provider.Lookup(context.Background(), Query{IP: "203.0.113.7"})
	require.NoError(t, err)
	assert.Equal(t, "Toronto", loc.City)
	assert.Equal(t, "Canada", loc.Country)
	assert.Equal(t, "CA", loc.CountryCode)
	assert.Equal(t, "ipapi.co", loc.Source)
	assert.Equal(t, "city", loc.Accuracy)
}

func TestIPAPIComProviderLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/203.0.113.7", r.URL.Path)
		w.Write([]byte(`{"status":"success","query":"203.0.113.7","city":"Mumbai","regionName":"Maharashtra","country":"India","countryCode":"IN","timezone":"Asia/Kolkata","zip":"400001","lat":19.07,"lon":72.87}`))
	}))
	defer server.Close()

	provider := NewIPAPIComProvider(server.URL)

	loc, err := provider.Lookup(context.Background(), Query{IP: "203.0.113.7"})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", loc.City)
	assert.Equal(t, "IN", loc.CountryCode)
	assert.Equal(t, "ip-api.com", loc.Source)
}

func TestIPAPIComProviderFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"private range"}`))
	}))
	defer server.Close()

	_, err := NewIPAPIComProvider(server.URL).Lookup(context.Background(), Query{IP: "10.0.0.1"})
	assert.ErrorIs(t, err, errNoLocation)
}

func TestTimezoneProviderLookup(t *testing.T) {
	provider := NewTimezoneProvider()

	loc, err := provider.Lookup(context.Background(), Query{Timezone: "America/Toronto"})
	require.NoError(t, err)
	assert.Equal(t, "Toronto", loc.City)
	assert.Equal(t, "CA", loc.CountryCode)
	assert.Equal(t, "timezone", loc.Accuracy)

	// An unmapped timezone still yields a usable timezone-only result.
	loc, err = provider.Lookup(context.Background(), Query{Timezone: "Pacific/Auckland"})
	require.NoError(t, err)
	assert.Empty(t, loc.City)
	assert.Equal(t, "Pacific/Auckland", loc.Timezone)
	assert.True(t, loc.Usable())

	_, err = provider.Lookup(context.Background(), Query{})
	assert.ErrorIs(t, err, errNoLocation)
}

func TestServiceLookupChainOrder(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","query":"203.0.113.7","city":"London","country":"United Kingdom","countryCode":"GB","timezone":"Europe/London"}`))
	}))
	defer working.Close()

	svc := NewService([]Provider{
		NewIPAPICoProvider(failing.URL),
		NewIPAPIComProvider(working.URL),
		NewTimezoneProvider(),
	}, zap.NewNop())

	loc, ok := svc.Lookup(context.Background(), Query{IP: "203.0.113.7"})
	require.True(t, ok)
	assert.Equal(t, "London", loc.City)
	assert.Equal(t, "ip-api.com", loc.Source)
}

func TestServiceLookupTimezoneFallback(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	svc := NewService([]Provider{
		NewIPAPICoProvider(failing.URL),
		NewIPAPIComProvider(failing.URL),
		NewTimezoneProvider(),
	}, zap.NewNop())

	loc, ok := svc.Lookup(context.Background(), Query{IP: "203.0.113.7", Timezone: "Asia/Tokyo"})
	require.True(t, ok)
	assert.Equal(t, "Tokyo", loc.City)
	assert.Equal(t, "timezone", loc.Source)

	_, ok = svc.Lookup(context.Background(), Query{})
	assert.False(t, ok)
}
