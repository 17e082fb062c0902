package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrCountryNotFound    = errors.New("country not found")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrExternalAPI        = errors.New("external API error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrCache              = errors.New("cache error")
	ErrConfig             = errors.New("configuration error")
)

// RateLimitSource tells a local quota rejection apart from a provider one.
type RateLimitSource string

const (
	RateLimitLocal    RateLimitSource = "local"
	RateLimitProvider RateLimitSource = "provider"
)

// ServiceError carries one of the sentinel kinds above together with enough
// context to build a precise message for the caller.
type ServiceError struct {
	Kind       error
	Subject    string
	Provider   string
	Message    string
	Source     RateLimitSource
	RetryAfter time.Duration
	Err        error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Subject != "" {
		fmt.Fprintf(&b, ": %s", e.Subject)
	}
	if e.Provider != "" {
		fmt.Fprintf(&b, " (provider %s)", e.Provider)
	}
	if e.Source != "" {
		fmt.Fprintf(&b, " (%s quota)", e.Source)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ServiceError) Is(target error) bool {
	return target == e.Kind
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func InvalidRequest(field, message string) *ServiceError {
	return &ServiceError{Kind: ErrInvalidRequest, Subject: field, Message: message}
}

func CountryNotFound(name string) *ServiceError {
	return &ServiceError{Kind: ErrCountryNotFound, Subject: name}
}

func InvalidCurrency(code Currency, country string, available []string) *ServiceError {
	return &ServiceError{
		Kind:    ErrInvalidCurrency,
		Subject: code.String(),
		Message: fmt.Sprintf("not available for %s, available currencies: %s", country, strings.Join(available, ", ")),
	}
}

func LocalRateLimit(key string) *ServiceError {
	return &ServiceError{Kind: ErrRateLimitExceeded, Subject: key, Source: RateLimitLocal}
}

func ProviderRateLimit(provider string, retryAfter time.Duration) *ServiceError {
	return &ServiceError{Kind: ErrRateLimitExceeded, Provider: provider, Source: RateLimitProvider, RetryAfter: retryAfter}
}

func ExternalAPI(provider, message string, err error) *ServiceError {
	return &ServiceError{Kind: ErrExternalAPI, Provider: provider, Message: message, Err: err}
}

func Unavailable(provider, message string, err error) *ServiceError {
	return &ServiceError{Kind: ErrServiceUnavailable, Provider: provider, Message: message, Err: err}
}

func ConfigError(message string, err error) *ServiceError {
	return &ServiceError{Kind: ErrConfig, Message: message, Err: err}
}

// AsServiceError extracts the typed error, if any.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// NoCurrency reports a country that publishes no currency at all.
func NoCurrency(country string) *ServiceError {
	return &ServiceError{Kind: ErrInvalidCurrency, Subject: country, Message: "no currency available"}
}
