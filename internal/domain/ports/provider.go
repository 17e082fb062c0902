package ports

import (
	"context"

	"currency-converter/internal/domain/model"
)

type CountryResolver interface {
	ResolveCountry(ctx context.Context, name string) (*model.CountryInfo, error)
}

type RateFetcher interface {
	FetchRates(ctx context.Context, base model.Currency) (*model.ExchangeRateData, error)
}

// Provider is the full set of external lookups the conversion needs.
type Provider interface {
	CountryResolver
	RateFetcher
}
