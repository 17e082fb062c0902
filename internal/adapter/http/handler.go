package http

import (
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"
)

const (
	HeaderAPIKey    = "X-API-Key"
	HeaderRequestID = "X-Request-ID"

	maxBodyBytes = 1 << 16
)

type Handler struct {
	service  ports.CurrencyService
	log      *logger.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
	source   string
	now      func() time.Time
}

// NewHandler builds the HTTP handlers. source names the rate provider in
// response metadata.
func NewHandler(service ports.CurrencyService, log *logger.Logger, metrics *metrics.Metrics, source string) *Handler {
	return &Handler{
		service:  service,
		log:      log,
		metrics:  metrics,
		validate: validator.New(),
		source:   source,
		now:      time.Now,
	}
}

// ConvertHandler serves POST /v1/currency with the detailed envelope.
func (h *Handler) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	requestID := RequestIDFromContext(r.Context())

	req, err := h.bind(w, r)
	if err != nil {
		h.handleServiceError(w, requestID, err)
		return
	}

	result, err := h.service.Convert(r.Context(), req.toModel(clientKey(r)))
	if err != nil {
		h.handleServiceError(w, requestID, err)
		return
	}
	h.metrics.ObserveConversion("success")

	now := h.now()
	h.sendJSON(w, http.StatusOK, newDetailedResponse(requestID, now.UTC(), result, h.source, now.Sub(start)))
}

// LegacyConvertHandler serves POST /currency with the plain body.
func (h *Handler) LegacyConvertHandler(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	req, err := h.bind(w, r)
	if err != nil {
		h.handleServiceError(w, requestID, err)
		return
	}

	result, err := h.service.Convert(r.Context(), req.toModel(clientKey(r)))
	if err != nil {
		h.handleServiceError(w, requestID, err)
		return
	}
	h.metrics.ObserveConversion("success")

	h.sendJSON(w, http.StatusOK, SimpleConversionResponse{
		From:   result.FromCurrency.Code.String(),
		To:     result.ToCurrency.Code.String(),
		Amount: result.ToAmount,
	})
}

func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, StatsResponse{Caches: h.service.Stats()})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: h.now().UTC()})
}

func (h *Handler) bind(w http.ResponseWriter, r *http.Request) (ConvertRequest, error) {
	var req ConvertRequest

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return req, model.InvalidRequest("body", "malformed JSON: "+err.Error())
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return req, model.InvalidRequest(fieldName(fe.Field()), "failed "+fe.Tag()+" validation")
		}
		return req, model.InvalidRequest("body", err.Error())
	}
	return req, nil
}

func fieldName(field string) string {
	switch field {
	case "PreferredCurrency":
		return "preferred_currency"
	case "From":
		return "from"
	case "To":
		return "to"
	case "Amount":
		return "amount"
	}
	return field
}

// clientKey identifies the caller for the daily quota: the API key when one
// is sent, the client IP otherwise.
func clientKey(r *http.Request) string {
	if key := r.Header.Get(HeaderAPIKey); key != "" {
		return key
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (h *Handler) sendJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) handleServiceError(w http.ResponseWriter, requestID string, err error) {
	statusCode, code := statusFor(err)
	h.metrics.ObserveConversion(code)

	resp := ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: requestID,
		Timestamp: h.now().UTC(),
	}

	if se, ok := model.AsServiceError(err); ok && errors.Is(err, model.ErrRateLimitExceeded) {
		h.metrics.ObserveRateLimit(string(se.Source))
		if se.RetryAfter > 0 {
			secs := int64(math.Ceil(se.RetryAfter.Seconds()))
			resp.RetryAfter = secs
			w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
		}
	}

	if statusCode >= http.StatusInternalServerError {
		h.log.Error("Service error", "error", err, "status_code", statusCode, "request_id", requestID)
		resp.Error = publicMessage(statusCode)
	} else {
		h.log.Warn("Request rejected", "error", err, "status_code", statusCode, "request_id", requestID)
	}

	h.sendJSON(w, statusCode, resp)
}

// publicMessage replaces provider details in 5xx bodies; they stay in the log.
func publicMessage(statusCode int) string {
	if statusCode == http.StatusServiceUnavailable {
		return "upstream provider unavailable"
	}
	return "internal server error"
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, model.ErrInvalidCurrency):
		return http.StatusBadRequest, "invalid_currency"
	case errors.Is(err, model.ErrCountryNotFound):
		return http.StatusNotFound, "country_not_found"
	case errors.Is(err, model.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "rate_limit_exceeded"
	case errors.Is(err, model.ErrExternalAPI):
		return http.StatusServiceUnavailable, "external_api_error"
	case errors.Is(err, model.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, model.ErrCache):
		return http.StatusInternalServerError, "cache_error"
	case errors.Is(err, model.ErrConfig):
		return http.StatusInternalServerError, "config_error"
	}
	return http.StatusInternalServerError, "internal_error"
}
