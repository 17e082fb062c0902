package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/pkg/logger"
)

const (
	AnonymousClient     = "anonymous"
	defaultProviderName = "exchange rate provider"
)

type CurrencyService struct {
	countries    ports.CountryCache
	rates        ports.RateCache
	provider     ports.Provider
	limiter      ports.RateLimiter
	log          *logger.Logger
	providerName string
	now          func() time.Time
}

var _ ports.CurrencyService = (*CurrencyService)(nil)

type Option func(*CurrencyService)

// WithProviderName sets the rate provider name reported in errors.
func WithProviderName(name string) Option {
	return func(s *CurrencyService) { s.providerName = name }
}

func WithClock(now func() time.Time) Option {
	return func(s *CurrencyService) { s.now = now }
}

func NewCurrencyService(countries ports.CountryCache, rates ports.RateCache, provider ports.Provider, limiter ports.RateLimiter, log *logger.Logger, opts ...Option) *CurrencyService {
	s := &CurrencyService{
		countries:    countries,
		rates:        rates,
		provider:     provider,
		limiter:      limiter,
		log:          log,
		providerName: defaultProviderName,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Convert resolves both countries, picks a currency for each, finds the rate
// and converts the amount. Stages run in order and the first failure is
// returned as is; nothing already written to a cache is rolled back.
func (s *CurrencyService) Convert(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	fromKey := model.NormalizeCountry(request.From)
	toKey := model.NormalizeCountry(request.To)

	fromCountry, fromCached, err := s.resolveCountry(ctx, fromKey, request.From)
	if err != nil {
		return nil, err
	}

	toCountry, toCached := fromCountry, fromCached
	if toKey != fromKey {
		toCountry, toCached, err = s.resolveCountry(ctx, toKey, request.To)
		if err != nil {
			return nil, err
		}
	}

	preferred := model.NormalizeCurrency(request.PreferredCurrency)

	fromCurrency, err := selectCurrency(fromCountry, preferred)
	if err != nil {
		return nil, err
	}
	toCurrency, err := selectCurrency(toCountry, preferred)
	if err != nil {
		return nil, err
	}

	clientID := request.ClientID
	if clientID == "" {
		clientID = AnonymousClient
	}

	result := &model.ConversionResult{
		FromCountry:       fromCountry.Name,
		ToCountry:         toCountry.Name,
		FromCurrency:      fromCurrency,
		ToCurrency:        toCurrency,
		FromAmount:        request.Amount,
		FromCountryCached: fromCached,
		ToCountryCached:   toCached,
	}

	if fromCurrency.Code == toCurrency.Code {
		result.Rate = 1.0
		result.LastUpdated = s.now().UTC()
		result.RateLimitRemaining = s.limiter.Remaining(clientID)
	} else {
		data, cached, remaining, err := s.exchangeRates(ctx, fromCurrency.Code, clientID)
		if err != nil {
			return nil, err
		}

		rate, ok := data.Rate(toCurrency.Code)
		if !ok {
			s.log.Error("Exchange rate not found", "from", fromCurrency.Code, "to", toCurrency.Code)
			return nil, model.ExternalAPI(s.providerName, fmt.Sprintf("no %s rate in %s table", toCurrency.Code, fromCurrency.Code), nil)
		}

		result.Rate = rate
		result.LastUpdated = data.LastUpdated()
		result.RateCached = cached
		result.RateLimitRemaining = remaining
		result.ProviderRemaining = data.ProviderRemaining()
	}

	result.ToAmount = request.Amount * result.Rate

	if fromCountry.IsMultiCurrency() || toCountry.IsMultiCurrency() {
		result.MultipleCurrencies = true
		result.AvailableCurrencies = unionCurrencies(fromCountry.Currencies, toCountry.Currencies)
	}

	s.log.Info("Converted currency",
		"from", fromCurrency.Code,
		"to", toCurrency.Code,
		"amount", request.Amount,
		"result", result.ToAmount,
		"rate", result.Rate,
		"cache_hit", result.CacheHit(),
	)

	return result, nil
}

// Sweep drops expired cache entries and stale limiter keys.
func (s *CurrencyService) Sweep() {
	countries := s.countries.ClearExpired()
	rates := s.rates.ClearExpired()
	keys := s.limiter.Cleanup()

	s.log.Debug("Sweep finished", "countries", countries, "rates", rates, "limiter_keys", keys)
}

func (s *CurrencyService) Stats() []model.CacheStats {
	return []model.CacheStats{s.countries.Stats(), s.rates.Stats()}
}

// resolveCountry looks up key in the cache, then the provider. typed is the
// caller's spelling and is used in not-found errors.
func (s *CurrencyService) resolveCountry(ctx context.Context, key, typed string) (*model.CountryInfo, bool, error) {
	if info, found := s.countries.Get(key); found {
		s.log.Debug("Country found in cache", "country", key)
		return info, true, nil
	}

	s.log.Debug("Resolving country from provider", "country", key)
	info, err := s.provider.ResolveCountry(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrCountryNotFound) {
			s.log.Warn("Country not found", "country", key)
			return nil, false, model.CountryNotFound(strings.TrimSpace(typed))
		}
		s.log.Error("Failed to resolve country", "error", err, "country", key)
		return nil, false, err
	}
	if info == nil {
		s.log.Error("Country provider returned no data", "country", key)
		return nil, false, model.ExternalAPI("country provider", "empty response for "+key, nil)
	}

	if info.Name == "" {
		info = model.NewCountryInfo(model.FormatCountry(key), info.OfficialName, info.Currencies)
	}

	s.countries.Set(key, info)
	return info, false, nil
}

// exchangeRates serves the rate table from cache when possible. A miss
// consumes one unit of the caller's quota before the provider is called.
func (s *CurrencyService) exchangeRates(ctx context.Context, base model.Currency, clientID string) (*model.ExchangeRateData, bool, int, error) {
	if data, found := s.rates.Get(base.String()); found {
		s.log.Debug("Exchange rates found in cache", "base", base)
		return data, true, s.limiter.Remaining(clientID), nil
	}

	remaining, err := s.limiter.CheckAndIncrement(clientID)
	if err != nil {
		s.log.Warn("Local rate limit exceeded", "client", clientID)
		return nil, false, 0, err
	}

	s.log.Debug("Fetching exchange rates from provider", "base", base)
	data, err := s.provider.FetchRates(ctx, base)
	if err != nil {
		s.log.Error("Failed to fetch exchange rates", "error", err, "base", base)
		return nil, false, 0, err
	}

	s.rates.Set(base.String(), data)
	return data, false, remaining, nil
}

// selectCurrency picks the currency to convert with. A preferred code only
// matters for a country that has more than one currency.
func selectCurrency(country *model.CountryInfo, preferred model.Currency) (model.CurrencyInfo, error) {
	primary, ok := country.Primary()
	if !ok {
		return model.CurrencyInfo{}, model.NoCurrency(country.Name)
	}
	if !country.IsMultiCurrency() || preferred.IsZero() {
		return primary, nil
	}

	if info, found := country.Lookup(preferred); found {
		return info, nil
	}
	return model.CurrencyInfo{}, model.InvalidCurrency(preferred, country.Name, country.Codes())
}

func unionCurrencies(lists ...[]model.CurrencyInfo) []model.CurrencyInfo {
	seen := make(map[model.Currency]struct{})
	var out []model.CurrencyInfo
	for _, list := range lists {
		for _, c := range list {
			if _, dup := seen[c.Code]; dup {
				continue
			}
			seen[c.Code] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
