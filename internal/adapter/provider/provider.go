package provider

import (
	"context"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
)

// Client joins a country resolver and a rate fetcher into one provider.
type Client struct {
	countries ports.CountryResolver
	rates     ports.RateFetcher
}

var _ ports.Provider = (*Client)(nil)

func NewClient(countries ports.CountryResolver, rates ports.RateFetcher) *Client {
	return &Client{countries: countries, rates: rates}
}

func (c *Client) ResolveCountry(ctx context.Context, name string) (*model.CountryInfo, error) {
	return c.countries.ResolveCountry(ctx, name)
}

func (c *Client) FetchRates(ctx context.Context, base model.Currency) (*model.ExchangeRateData, error) {
	return c.rates.FetchRates(ctx, base)
}
