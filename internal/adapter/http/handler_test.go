package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"
)

type MockCurrencyService struct {
	ConvertFunc func(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error)
	StatsFunc   func() []model.CacheStats
	calls       []model.ConversionRequest
}

func (m *MockCurrencyService) Convert(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error) {
	m.calls = append(m.calls, request)
	return m.ConvertFunc(ctx, request)
}

func (m *MockCurrencyService) Stats() []model.CacheStats {
	return m.StatsFunc()
}

func sampleResult() *model.ConversionResult {
	return &model.ConversionResult{
		FromCountry:        "United States",
		ToCountry:          "France",
		FromCurrency:       model.CurrencyInfo{Code: model.USD, Name: "United States dollar", Symbol: "$", IsPrimary: true},
		ToCurrency:         model.CurrencyInfo{Code: model.EUR, Name: "Euro", Symbol: "€", IsPrimary: true},
		FromAmount:         100,
		ToAmount:           95.36,
		Rate:               0.9536,
		LastUpdated:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		RateLimitRemaining: 999,
	}
}

type testServer struct {
	handler http.Handler
	service *MockCurrencyService
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, svc *MockCurrencyService) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	log := logger.NewNop()

	h := NewHandler(svc, log, m, "exchangerate-api.com")
	router := NewRouter(h, log, m, reg, []string{"*"})
	return &testServer{handler: router.SetupRoutes(), service: svc, metrics: m}
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestConvertHandler_Success(t *testing.T) {
	srv := newTestServer(t, &MockCurrencyService{
		ConvertFunc: func(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error) {
			return sampleResult(), nil
		},
	})

	rec := srv.do(http.MethodPost, "/v1/currency",
		`{"from":"United States","to":"France","amount":100,"preferred_currency":"usd"}`,
		map[string]string{HeaderAPIKey: "key-123"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	requestID := rec.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, requestID)

	var resp DetailedConversionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, requestID, resp.RequestID)
	assert.Equal(t, "USD", resp.Data.From.CurrencyCode)
	assert.Equal(t, "United States", resp.Data.From.Country)
	assert.Equal(t, 100.0, resp.Data.From.Amount)
	assert.Equal(t, "EUR", resp.Data.To.CurrencyCode)
	assert.Equal(t, 95.36, resp.Data.To.Amount)
	assert.Equal(t, 0.9536, resp.Data.ExchangeRate)
	assert.Equal(t, "exchangerate-api.com", resp.Meta.Source)
	assert.False(t, resp.Meta.CacheHit)
	assert.Equal(t, 999, resp.Meta.RateLimitRemaining)

	require.Len(t, srv.service.calls, 1)
	call := srv.service.calls[0]
	assert.Equal(t, "key-123", call.ClientID)
	assert.Equal(t, "usd", call.PreferredCurrency)
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.ConversionsTotal.WithLabelValues("success")))
}

func TestConvertHandler_CacheHitSource(t *testing.T) {
	srv := newTestServer(t, &MockCurrencyService{
		ConvertFunc: func(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error) {
			r := sampleResult()
			r.FromCountryCached, r.ToCountryCached, r.RateCached = true, true, true
			return r, nil
		},
	})

	rec := srv.do(http.MethodPost, "/v1/currency", `{"from":"United States","to":"France","amount":100}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DetailedConversionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Meta.CacheHit)
	assert.Equal(t, "cache", resp.Meta.Source)
}

func TestConvertHandler_ClientKeyFallsBackToIP(t *testing.T) {
	srv := newTestServer(t, &MockCurrencyService{
		ConvertFunc: func(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error) {
			return sampleResult(), nil
		},
	})

	rec := srv.do(http.MethodPost, "/v1/currency", `{"from":"a","to":"b","amount":1}`,
		map[string]string{"X-Real-IP": "203.0.113.7"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "203.0.113.7", srv.service.calls[0].ClientID)

	rec = srv.do(http.MethodPost, "/v1/currency", `{"from":"a","to":"b","amount":1}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "192.0.2.1", srv.service.calls[1].ClientID)
}

func TestLegacyConvertHandler(t *testing.T) {
	srv := newTestServer(t, &MockCurrencyService{
		ConvertFunc: func(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error) {
			return sampleResult(), nil
		},
	})

	rec := srv.do(http.MethodPost, "/currency", `{"from":"United States","to":"France","amount":100}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SimpleConversionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, SimpleConversionResponse{From: "USD", To: "EUR", Amount: 95.36}, resp)
}

func TestConvertHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"from":`},
		{"unknown field", `{"from":"a","to":"b","amount":1,"extra":true}`},
		{"missing from", `{"to":"b","amount":1}`},
		{"zero amount", `{"from":"a","to":"b","amount":0}`},
		{"negative amount", `{"from":"a","to":"b","amount":-1}`},
		{"bad preferred currency", `{"from":"a","to":"b","amount":1,"preferred_currency":"dollar"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &MockCurrencyService{})

			rec := srv.do(http.MethodPost, "/v1/currency", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_request", resp.Code)
			assert.NotEmpty(t, resp.RequestID)
			assert.Empty(t, srv.service.calls)
		})
	}
}

func TestConvertHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid request", model.InvalidRequest("from", "blank"), http.StatusBadRequest, "invalid_request"},
		{"invalid currency", model.InvalidCurrency("XYZ", "Panama", []string{"USD", "PAB"}), http.StatusBadRequest, "invalid_currency"},
		{"country not found", model.CountryNotFound("atlantis"), http.StatusNotFound, "country_not_found"},
		{"local rate limit", model.LocalRateLimit("client"), http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"external api", model.ExternalAPI("x", "boom", nil), http.StatusServiceUnavailable, "external_api_error"},
		{"unavailable", model.Unavailable("x", "timeout", nil), http.StatusServiceUnavailable, "service_unavailable"},
		{"config", model.ConfigError("missing", nil), http.StatusInternalServerError, "config_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &MockCurrencyService{
				ConvertFunc: func(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error) {
					return nil, tt.err
				},
			})

			rec := srv.do(http.MethodPost, "/v1/currency", `{"from":"a","to":"b","amount":1}`, nil)
			require.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.ConversionsTotal.WithLabelValues(tt.wantCode)))
		})
	}
}

func TestConvertHandler_ProviderRateLimitRetryAfter(t *testing.T) {
	srv := newTestServer(t, &MockCurrencyService{
		ConvertFunc: func(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error) {
			return nil, model.ProviderRateLimit("exchangerate-api.com", 20*time.Minute)
		},
	})

	rec := srv.do(http.MethodPost, "/currency", `{"from":"a","to":"b","amount":1}`, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1200", rec.Header().Get("Retry-After"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1200), resp.RetryAfter)
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.RateLimitRejections.WithLabelValues("provider")))
}

func TestStatsAndHealth(t *testing.T) {
	srv := newTestServer(t, &MockCurrencyService{
		StatsFunc: func() []model.CacheStats {
			return []model.CacheStats{{Name: "countries", Size: 2, MaxSize: 500, Hits: 3, Misses: 1, HitRate: 0.75}}
		},
	})

	rec := srv.do(http.MethodGet, "/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats.Caches, 1)
	assert.Equal(t, 0.75, stats.Caches[0].HitRate)

	rec = srv.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &MockCurrencyService{
		StatsFunc: func() []model.CacheStats { return nil },
	})

	srv.do(http.MethodGet, "/v1/stats", "", nil)
	rec := srv.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `currency_converter_http_requests_total{method="GET",path="/v1/stats",status_code="2xx"} 1`)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &MockCurrencyService{})

	rec := srv.do(http.MethodGet, "/v1/currency", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestConvertHandler_ServerErrorsHideDetails(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "external api",
			err:        model.ExternalAPI("exchangerate-api.com", "request failed", errors.New(`Get "http://127.0.0.1:1/SECRET-API-KEY/latest/USD": connection refused`)),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "upstream provider unavailable",
		},
		{
			name:       "unavailable",
			err:        model.Unavailable("exchangerate-api.com", "request timed out", errors.New("SECRET-API-KEY")),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "upstream provider unavailable",
		},
		{
			name:       "config",
			err:        model.ConfigError("SECRET-API-KEY rejected", nil),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &MockCurrencyService{
				ConvertFunc: func(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error) {
					return nil, tt.err
				},
			})

			rec := srv.do(http.MethodPost, "/v1/currency", `{"from":"a","to":"b","amount":1}`, nil)
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "SECRET-API-KEY")

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}
