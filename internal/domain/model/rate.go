package model

import (
	"math"
	"strings"
	"time"
)

// ExchangeRateData holds every rate published for one base currency. It is
// immutable: a new fetch produces a new value.
type ExchangeRateData struct {
	base              Currency
	rates             map[Currency]float64
	lastUpdated       time.Time
	providerRemaining *int
}

// NewExchangeRateData copies rates so the caller's map can be reused.
// providerRemaining is nil when the provider did not report its quota.
func NewExchangeRateData(base Currency, rates map[string]float64, lastUpdated time.Time, providerRemaining *int) *ExchangeRateData {
	copied := make(map[Currency]float64, len(rates))
	for code, rate := range rates {
		copied[NormalizeCurrency(code)] = rate
	}

	var remaining *int
	if providerRemaining != nil {
		v := *providerRemaining
		remaining = &v
	}

	return &ExchangeRateData{
		base:              base,
		rates:             copied,
		lastUpdated:       lastUpdated,
		providerRemaining: remaining,
	}
}

func (d *ExchangeRateData) Base() Currency {
	return d.base
}

func (d *ExchangeRateData) Rate(target Currency) (float64, bool) {
	rate, ok := d.rates[target]
	return rate, ok
}

func (d *ExchangeRateData) LastUpdated() time.Time {
	return d.lastUpdated
}

func (d *ExchangeRateData) ProviderRemaining() *int {
	if d.providerRemaining == nil {
		return nil
	}
	v := *d.providerRemaining
	return &v
}

func (d *ExchangeRateData) Len() int {
	return len(d.rates)
}

type ConversionRequest struct {
	From              string  `json:"from"`
	To                string  `json:"to"`
	Amount            float64 `json:"amount"`
	PreferredCurrency string  `json:"preferred_currency,omitempty"`
	ClientID          string  `json:"-"`
}

// Validate checks the request invariants: both names present and a finite,
// positive amount.
func (r ConversionRequest) Validate() error {
	if strings.TrimSpace(r.From) == "" {
		return InvalidRequest("from", "source country is required")
	}
	if strings.TrimSpace(r.To) == "" {
		return InvalidRequest("to", "target country is required")
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) || r.Amount <= 0 {
		return InvalidRequest("amount", "amount must be a positive number")
	}
	return nil
}

type ConversionResult struct {
	FromCountry         string         `json:"from_country"`
	ToCountry           string         `json:"to_country"`
	FromCurrency        CurrencyInfo   `json:"from_currency"`
	ToCurrency          CurrencyInfo   `json:"to_currency"`
	FromAmount          float64        `json:"from_amount"`
	ToAmount            float64        `json:"to_amount"`
	Rate                float64        `json:"rate"`
	LastUpdated         time.Time      `json:"last_updated"`
	FromCountryCached   bool           `json:"from_country_cached"`
	ToCountryCached     bool           `json:"to_country_cached"`
	RateCached          bool           `json:"rate_cached"`
	MultipleCurrencies  bool           `json:"multiple_currencies"`
	AvailableCurrencies []CurrencyInfo `json:"available_currencies,omitempty"`
	RateLimitRemaining  int            `json:"rate_limit_remaining"`
	ProviderRemaining   *int           `json:"provider_remaining,omitempty"`
}

// CacheHit reports whether every lookup of the conversion was served from cache.
func (r *ConversionResult) CacheHit() bool {
	return r.FromCountryCached && r.ToCountryCached && (r.RateCached || r.FromCurrency.Code == r.ToCurrency.Code)
}

type CacheStats struct {
	Name      string  `json:"name"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}
