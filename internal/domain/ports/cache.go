package ports

import "currency-converter/internal/domain/model"

// Cache is a best-effort accelerator; it never reports errors.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	ClearExpired() int
	Stats() model.CacheStats
}

type CountryCache = Cache[*model.CountryInfo]

type RateCache = Cache[*model.ExchangeRateData]
