package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"currency-converter/internal/adapter/cache"
	"currency-converter/internal/adapter/provider"
	"currency-converter/internal/adapter/ratelimit"
	"currency-converter/internal/config"
	"currency-converter/internal/domain/model"
	"currency-converter/internal/metrics"
	"currency-converter/internal/service"
	"currency-converter/pkg/logger"
)

// application holds every long-lived component, wired once per process.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	service  *service.CurrencyService
}

func newApplication(cfg *config.Config, log *logger.Logger) *application {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(registry)

	countryCache := cache.NewMemoryCache[*model.CountryInfo]("countries", cfg.Cache.CountryTTL, cfg.Cache.CountryMaxSize, log,
		cache.WithObserver(appMetrics.ObserveCache))
	rateCache := cache.NewMemoryCache[*model.ExchangeRateData]("rates", cfg.Cache.RateTTL, cfg.Cache.RateMaxSize, log,
		cache.WithObserver(appMetrics.ObserveCache))
	appMetrics.RegisterCacheSize("countries", countryCache.Len)
	appMetrics.RegisterCacheSize("rates", rateCache.Len)

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		DailyLimit:      cfg.RateLimit.DailyLimit,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
		GracePeriod:     cfg.RateLimit.GracePeriod,
	}, log.With("component", "ratelimit"))

	httpClient := provider.NewHTTPClient(cfg.Provider.Timeout)
	countries := provider.NewRestCountries(cfg.Countries.BaseURL, httpClient,
		provider.NewPacer(cfg.Countries.RequestsPerSecond), appMetrics.ObserveProvider, log.With("provider", provider.RestCountriesName))
	rates := provider.NewExchangeRateAPI(cfg.Rates.BaseURL, cfg.Rates.APIKey, httpClient,
		provider.NewPacer(cfg.Rates.RequestsPerSecond), appMetrics.ObserveProvider, log.With("provider", provider.ExchangeRateAPIName))

	svc := service.NewCurrencyService(countryCache, rateCache, provider.NewClient(countries, rates), limiter, log,
		service.WithProviderName(provider.ExchangeRateAPIName))

	return &application{
		cfg:      cfg,
		log:      log,
		registry: registry,
		metrics:  appMetrics,
		service:  svc,
	}
}
