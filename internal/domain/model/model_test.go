package model

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCountryInfo_PrimarySelection(t *testing.T) {
	testCases := []struct {
		name            string
		currencies      []CurrencyInfo
		expectedPrimary Currency
		expectedOrder   []string
	}{
		{
			name:            "single currency",
			currencies:      []CurrencyInfo{{Code: "JPY", Name: "Japanese yen"}},
			expectedPrimary: "JPY",
			expectedOrder:   []string{"JPY"},
		},
		{
			name:            "USD preferred over local currency",
			currencies:      []CurrencyInfo{{Code: "PAB"}, {Code: "USD"}},
			expectedPrimary: USD,
			expectedOrder:   []string{"USD", "PAB"},
		},
		{
			name:            "EUR preferred when no USD",
			currencies:      []CurrencyInfo{{Code: "XPF"}, {Code: "EUR"}, {Code: "ANG"}},
			expectedPrimary: EUR,
			expectedOrder:   []string{"EUR", "ANG", "XPF"},
		},
		{
			name:            "lowest code as last resort",
			currencies:      []CurrencyInfo{{Code: "ZAR"}, {Code: "LSL"}},
			expectedPrimary: "LSL",
			expectedOrder:   []string{"LSL", "ZAR"},
		},
		{
			name:            "provider flag wins",
			currencies:      []CurrencyInfo{{Code: "USD"}, {Code: "ZWL", IsPrimary: true}},
			expectedPrimary: "ZWL",
			expectedOrder:   []string{"ZWL", "USD"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info := NewCountryInfo("Test", "", tc.currencies)

			primary, ok := info.Primary()
			require.True(t, ok)
			assert.Equal(t, tc.expectedPrimary, primary.Code)
			assert.True(t, primary.IsPrimary)
			assert.Equal(t, tc.expectedOrder, info.Codes())

			flagged := 0
			for _, c := range info.Currencies {
				if c.IsPrimary {
					flagged++
				}
			}
			assert.Equal(t, 1, flagged)
		})
	}
}

func TestNewCountryInfo_DoesNotAliasInput(t *testing.T) {
	input := []CurrencyInfo{{Code: "PAB"}, {Code: "USD"}}
	info := NewCountryInfo("Panama", "Republic of Panama", input)

	info.Currencies[0].Name = "changed"
	assert.Empty(t, input[0].Name)
	assert.Empty(t, input[1].Name)
}

func TestCountryInfo_Lookup(t *testing.T) {
	info := NewCountryInfo("Panama", "", []CurrencyInfo{{Code: "PAB"}, {Code: "USD"}})

	_, ok := info.Lookup("PAB")
	assert.True(t, ok)
	_, ok = info.Lookup("XYZ")
	assert.False(t, ok)
	assert.True(t, info.IsMultiCurrency())
}

func TestNormalizeAndFormatCountry(t *testing.T) {
	assert.Equal(t, "united states", NormalizeCountry("  United States "))
	assert.Equal(t, "United States", FormatCountry("uNITED   states"))
	assert.Equal(t, "", FormatCountry("   "))
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, Currency("PAB"), NormalizeCurrency(" pab "))
	assert.True(t, NormalizeCurrency("  ").IsZero())
}

func TestExchangeRateData_Immutable(t *testing.T) {
	rates := map[string]float64{"eur": 0.9536}
	remaining := 10
	data := NewExchangeRateData(USD, rates, time.Unix(1700000000, 0), &remaining)

	rates["EUR"] = 2
	remaining = 0

	rate, ok := data.Rate(EUR)
	require.True(t, ok)
	assert.Equal(t, 0.9536, rate)
	require.NotNil(t, data.ProviderRemaining())
	assert.Equal(t, 10, *data.ProviderRemaining())

	*data.ProviderRemaining() = 3
	assert.Equal(t, 10, *data.ProviderRemaining())
	assert.Equal(t, 1, data.Len())
	assert.Equal(t, USD, data.Base())
}

func TestConversionRequest_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		request ConversionRequest
		valid   bool
	}{
		{"valid", ConversionRequest{From: "France", To: "Japan", Amount: 1}, true},
		{"blank from", ConversionRequest{From: "  ", To: "Japan", Amount: 1}, false},
		{"blank to", ConversionRequest{From: "France", To: "", Amount: 1}, false},
		{"zero amount", ConversionRequest{From: "France", To: "Japan", Amount: 0}, false},
		{"negative amount", ConversionRequest{From: "France", To: "Japan", Amount: -5}, false},
		{"NaN amount", ConversionRequest{From: "France", To: "Japan", Amount: math.NaN()}, false},
		{"infinite amount", ConversionRequest{From: "France", To: "Japan", Amount: math.Inf(1)}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.request.Validate()
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestServiceError_IsAndAs(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("resolve source: %w", ExternalAPI("restcountries", "request failed", cause))

	assert.ErrorIs(t, err, ErrExternalAPI)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrCountryNotFound)

	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "restcountries", se.Provider)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestServiceError_RateLimitSources(t *testing.T) {
	local := LocalRateLimit("client-1")
	remote := ProviderRateLimit("exchangerate-api", 20*time.Minute)

	assert.ErrorIs(t, local, ErrRateLimitExceeded)
	assert.ErrorIs(t, remote, ErrRateLimitExceeded)
	assert.Equal(t, RateLimitLocal, local.Source)
	assert.Equal(t, RateLimitProvider, remote.Source)
	assert.NotEqual(t, local.Error(), remote.Error())
}

func TestConversionResult_CacheHit(t *testing.T) {
	r := &ConversionResult{FromCountryCached: true, ToCountryCached: true, RateCached: true}
	assert.True(t, r.CacheHit())

	r.RateCached = false
	r.FromCurrency.Code, r.ToCurrency.Code = EUR, EUR
	assert.True(t, r.CacheHit())

	r.ToCurrency.Code = USD
	assert.False(t, r.CacheHit())
}
