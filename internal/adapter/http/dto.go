package http

import (
	"time"

	"currency-converter/internal/domain/model"
)

type ConvertRequest struct {
	From              string  `json:"from" validate:"required"`
	To                string  `json:"to" validate:"required"`
	Amount            float64 `json:"amount" validate:"gt=0"`
	PreferredCurrency string  `json:"preferred_currency,omitempty" validate:"omitempty,len=3,alpha"`
}

func (r ConvertRequest) toModel(clientID string) model.ConversionRequest {
	return model.ConversionRequest{
		From:              r.From,
		To:                r.To,
		Amount:            r.Amount,
		PreferredCurrency: r.PreferredCurrency,
		ClientID:          clientID,
	}
}

// SimpleConversionResponse is the body of the legacy /currency route.
type SimpleConversionResponse struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type DetailedConversionResponse struct {
	RequestID string           `json:"request_id"`
	Timestamp time.Time        `json:"timestamp"`
	Data      ConversionData   `json:"data"`
	Meta      ResponseMetadata `json:"meta"`
}

type ConversionData struct {
	From                CurrencyDetails     `json:"from"`
	To                  CurrencyDetails     `json:"to"`
	ExchangeRate        float64             `json:"exchange_rate"`
	LastUpdated         time.Time           `json:"last_updated"`
	AvailableCurrencies []AvailableCurrency `json:"available_currencies,omitempty"`
}

type CurrencyDetails struct {
	Country        string  `json:"country"`
	CurrencyCode   string  `json:"currency_code"`
	CurrencyName   string  `json:"currency_name"`
	CurrencySymbol string  `json:"currency_symbol"`
	Amount         float64 `json:"amount"`
	IsPrimary      bool    `json:"is_primary"`
}

type AvailableCurrency struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	IsPrimary bool   `json:"is_primary"`
}

type ResponseMetadata struct {
	Source                      string `json:"source"`
	ResponseTimeMs              int64  `json:"response_time_ms"`
	CacheHit                    bool   `json:"cache_hit"`
	MultipleCurrenciesAvailable bool   `json:"multiple_currencies_available"`
	RateLimitRemaining          int    `json:"rate_limit_remaining"`
	ProviderQuotaRemaining      *int   `json:"provider_quota_remaining,omitempty"`
}

type ErrorResponse struct {
	Error      string    `json:"error"`
	Code       string    `json:"code"`
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RetryAfter int64     `json:"retry_after_seconds,omitempty"`
}

type StatsResponse struct {
	Caches []model.CacheStats `json:"caches"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func newDetailedResponse(requestID string, now time.Time, result *model.ConversionResult, source string, elapsed time.Duration) DetailedConversionResponse {
	resp := DetailedConversionResponse{
		RequestID: requestID,
		Timestamp: now,
		Data: ConversionData{
			From:         currencyDetails(result.FromCountry, result.FromCurrency, result.FromAmount),
			To:           currencyDetails(result.ToCountry, result.ToCurrency, result.ToAmount),
			ExchangeRate: result.Rate,
			LastUpdated:  result.LastUpdated,
		},
		Meta: ResponseMetadata{
			Source:                      source,
			ResponseTimeMs:              elapsed.Milliseconds(),
			CacheHit:                    result.CacheHit(),
			MultipleCurrenciesAvailable: result.MultipleCurrencies,
			RateLimitRemaining:          result.RateLimitRemaining,
			ProviderQuotaRemaining:      result.ProviderRemaining,
		},
	}
	if resp.Meta.CacheHit {
		resp.Meta.Source = "cache"
	}

	for _, c := range result.AvailableCurrencies {
		resp.Data.AvailableCurrencies = append(resp.Data.AvailableCurrencies, AvailableCurrency{
			Code:      c.Code.String(),
			Name:      c.Name,
			Symbol:    c.Symbol,
			IsPrimary: c.IsPrimary,
		})
	}
	return resp
}

func currencyDetails(country string, currency model.CurrencyInfo, amount float64) CurrencyDetails {
	return CurrencyDetails{
		Country:        country,
		CurrencyCode:   currency.Code.String(),
		CurrencyName:   currency.Name,
		CurrencySymbol: currency.Symbol,
		Amount:         amount,
		IsPrimary:      currency.IsPrimary,
	}
}
