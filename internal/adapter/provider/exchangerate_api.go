package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/pkg/logger"
)

const (
	ExchangeRateAPIName = "exchangerate-api.com"
	DefaultRatesURL     = "https://v6.exchangerate-api.com/v6"

	errorTypeQuotaReached = "quota-reached"
	headerQuotaRemaining  = "X-RateLimit-Remaining"
)

type ExchangeRateAPI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pacer      *Pacer
	observer   Observer
	log        *logger.Logger
}

type exchangeRateAPIResponse struct {
	Result             string             `json:"result"`
	ErrorType          string             `json:"error-type,omitempty"`
	BaseCode           string             `json:"base_code"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	ConversionRates    map[string]float64 `json:"conversion_rates"`
}

func NewExchangeRateAPI(baseURL, apiKey string, httpClient *http.Client, pacer *Pacer, observer Observer, log *logger.Logger) *ExchangeRateAPI {
	if baseURL == "" {
		baseURL = DefaultRatesURL
	}
	return &ExchangeRateAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		pacer:      pacer,
		observer:   observer,
		log:        log,
	}
}

// FetchRates returns every rate published for base.
func (e *ExchangeRateAPI) FetchRates(ctx context.Context, base model.Currency) (*model.ExchangeRateData, error) {
	start := time.Now()

	if err := e.pacer.Wait(ctx); err != nil {
		if isTimeout(err) {
			observe(e.observer, ExchangeRateAPIName, OutcomeTimeout, start)
			return nil, model.Unavailable(ExchangeRateAPIName, "timed out waiting for a request slot", err)
		}
		observe(e.observer, ExchangeRateAPIName, OutcomeError, start)
		return nil, model.ExternalAPI(ExchangeRateAPIName, "request cancelled", err)
	}

	endpoint := fmt.Sprintf("%s/%s/latest/%s", e.baseURL, e.apiKey, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		observe(e.observer, ExchangeRateAPIName, OutcomeError, start)
		return nil, model.ExternalAPI(ExchangeRateAPIName, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	e.log.Debug("Fetching exchange rates", "base", base)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		timedOut := isTimeout(err)
		err = transportError(err, e.apiKey)
		if timedOut {
			observe(e.observer, ExchangeRateAPIName, OutcomeTimeout, start)
			return nil, model.Unavailable(ExchangeRateAPIName, "request timed out", err)
		}
		observe(e.observer, ExchangeRateAPIName, OutcomeError, start)
		e.log.Error("Failed to fetch exchange rates", "error", err, "base", base)
		return nil, model.ExternalAPI(ExchangeRateAPIName, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		observe(e.observer, ExchangeRateAPIName, OutcomeRateLimited, start)
		e.log.Warn("Exchange rate API quota exhausted", "base", base)
		return nil, model.ProviderRateLimit(ExchangeRateAPIName, parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	case resp.StatusCode == http.StatusServiceUnavailable:
		observe(e.observer, ExchangeRateAPIName, OutcomeError, start)
		return nil, model.Unavailable(ExchangeRateAPIName, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		// The API reports most failures as a JSON error body; try to read it.
		var apiResp exchangeRateAPIResponse
		if json.NewDecoder(resp.Body).Decode(&apiResp) == nil && apiResp.ErrorType == errorTypeQuotaReached {
			observe(e.observer, ExchangeRateAPIName, OutcomeRateLimited, start)
			return nil, model.ProviderRateLimit(ExchangeRateAPIName, parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
		}
		observe(e.observer, ExchangeRateAPIName, OutcomeError, start)
		e.log.Error("Exchange rate API returned non-OK status", "status", resp.StatusCode, "base", base)
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if apiResp.ErrorType != "" {
			msg += ": " + apiResp.ErrorType
		}
		return nil, model.ExternalAPI(ExchangeRateAPIName, msg, nil)
	}

	var apiResp exchangeRateAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		observe(e.observer, ExchangeRateAPIName, OutcomeError, start)
		return nil, model.ExternalAPI(ExchangeRateAPIName, "failed to decode response", err)
	}

	if apiResp.Result != "success" {
		if apiResp.ErrorType == errorTypeQuotaReached {
			observe(e.observer, ExchangeRateAPIName, OutcomeRateLimited, start)
			return nil, model.ProviderRateLimit(ExchangeRateAPIName, parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
		}
		observe(e.observer, ExchangeRateAPIName, OutcomeError, start)
		return nil, model.ExternalAPI(ExchangeRateAPIName, "API reported failure: "+apiResp.ErrorType, nil)
	}

	var remaining *int
	if v, err := strconv.Atoi(resp.Header.Get(headerQuotaRemaining)); err == nil {
		remaining = &v
	}

	lastUpdated := time.Now().UTC()
	if apiResp.TimeLastUpdateUnix > 0 {
		lastUpdated = time.Unix(apiResp.TimeLastUpdateUnix, 0).UTC()
	}

	observe(e.observer, ExchangeRateAPIName, OutcomeSuccess, start)
	e.log.Debug("Fetched exchange rates", "base", base, "count", len(apiResp.ConversionRates))

	return model.NewExchangeRateData(base, apiResp.ConversionRates, lastUpdated, remaining), nil
}

// parseRetryAfter accepts either delay-seconds or an HTTP date. Unknown or
// past values yield zero.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
