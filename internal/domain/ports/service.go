package ports

import (
	"context"

	"currency-converter/internal/domain/model"
)

type CurrencyService interface {
	Convert(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error)
	Stats() []model.CacheStats
}
