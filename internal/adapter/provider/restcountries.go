package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/pkg/logger"
)

const (
	RestCountriesName   = "restcountries.com"
	DefaultCountriesURL = "https://restcountries.com/v3.1"
	restCountriesFields = "name,currencies"
)

type RestCountries struct {
	baseURL    string
	httpClient *http.Client
	pacer      *Pacer
	observer   Observer
	log        *logger.Logger
}

type restCountryResponse struct {
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Currencies map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
}

func NewRestCountries(baseURL string, httpClient *http.Client, pacer *Pacer, observer Observer, log *logger.Logger) *RestCountries {
	if baseURL == "" {
		baseURL = DefaultCountriesURL
	}
	return &RestCountries{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		pacer:      pacer,
		observer:   observer,
		log:        log,
	}
}

// ResolveCountry looks a country up by name. The provider matches names
// case-insensitively and may return several partial matches; an exact
// common or official name match is preferred over the first entry.
func (r *RestCountries) ResolveCountry(ctx context.Context, name string) (*model.CountryInfo, error) {
	start := time.Now()
	name = strings.TrimSpace(name)

	if err := r.pacer.Wait(ctx); err != nil {
		if isTimeout(err) {
			observe(r.observer, RestCountriesName, OutcomeTimeout, start)
			return nil, model.Unavailable(RestCountriesName, "timed out waiting for a request slot", err)
		}
		observe(r.observer, RestCountriesName, OutcomeError, start)
		return nil, model.ExternalAPI(RestCountriesName, "request cancelled", err)
	}

	endpoint := fmt.Sprintf("%s/name/%s?fields=%s", r.baseURL, url.PathEscape(name), restCountriesFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		observe(r.observer, RestCountriesName, OutcomeError, start)
		return nil, model.ExternalAPI(RestCountriesName, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	r.log.Debug("Fetching country info", "country", name)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		timedOut := isTimeout(err)
		err = transportError(err)
		if timedOut {
			observe(r.observer, RestCountriesName, OutcomeTimeout, start)
			return nil, model.Unavailable(RestCountriesName, "request timed out", err)
		}
		observe(r.observer, RestCountriesName, OutcomeError, start)
		r.log.Error("Failed to fetch country info", "error", err, "country", name)
		return nil, model.ExternalAPI(RestCountriesName, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		observe(r.observer, RestCountriesName, OutcomeNotFound, start)
		return nil, model.CountryNotFound(name)
	case resp.StatusCode == http.StatusServiceUnavailable:
		observe(r.observer, RestCountriesName, OutcomeError, start)
		return nil, model.Unavailable(RestCountriesName, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		observe(r.observer, RestCountriesName, OutcomeError, start)
		r.log.Error("Country API returned non-OK status", "status", resp.StatusCode, "country", name)
		return nil, model.ExternalAPI(RestCountriesName, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var countries []restCountryResponse
	if err := json.NewDecoder(resp.Body).Decode(&countries); err != nil {
		observe(r.observer, RestCountriesName, OutcomeError, start)
		return nil, model.ExternalAPI(RestCountriesName, "failed to decode response", err)
	}
	if len(countries) == 0 {
		observe(r.observer, RestCountriesName, OutcomeNotFound, start)
		return nil, model.CountryNotFound(name)
	}

	country := bestMatch(countries, name)
	currencies := make([]model.CurrencyInfo, 0, len(country.Currencies))
	for code, details := range country.Currencies {
		currencies = append(currencies, model.CurrencyInfo{
			Code:   model.NormalizeCurrency(code),
			Name:   details.Name,
			Symbol: details.Symbol,
		})
	}

	observe(r.observer, RestCountriesName, OutcomeSuccess, start)

	common := country.Name.Common
	if common == "" {
		common = model.FormatCountry(name)
	}
	return model.NewCountryInfo(common, country.Name.Official, currencies), nil
}

func bestMatch(countries []restCountryResponse, name string) restCountryResponse {
	for _, c := range countries {
		if strings.EqualFold(c.Name.Common, name) || strings.EqualFold(c.Name.Official, name) {
			return c
		}
	}
	return countries[0]
}
