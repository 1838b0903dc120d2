package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/domain"
	"github.com/kailas-cloud/feedlock/internal/logger"
	"github.com/kailas-cloud/feedlock/internal/usecase/maintenance"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

var errorHandlers = []errorHandler{
	quotaExceededHandler,
	validationHandler,
	sentinelHandler(domain.ErrUnknownStrategy, http.StatusBadRequest, CodeUnknownStrategy),
	sentinelHandler(domain.ErrUnknownTier, http.StatusBadRequest, CodeUnknownTier),
	sentinelHandler(maintenance.ErrUnknownJob, http.StatusNotFound, CodeNotFound),
	sentinelHandler(domain.ErrClassifierRateLimited, http.StatusBadGateway, CodeClassifierUnavailable),
	sentinelHandler(domain.ErrClassifierUnavailable, http.StatusBadGateway, CodeClassifierUnavailable),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Only the sentinel text reaches the client.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// validationHandler exposes the offending field of a ValidationError.
func validationHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, ve.Error())
		return true
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, domain.ErrValidation.Error())
	return true
}

// quotaExceededHandler answers 429 with Retry-After.
func quotaExceededHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		return false
	}
	resp := ErrorResponse{Code: CodeQuotaExceeded, Message: domain.ErrQuotaExceeded.Error()}
	var qe *domain.QuotaExceededError
	if errors.As(err, &qe) {
		w.Header().Set("Retry-After", strconv.FormatInt(qe.RetryAfterSeconds, 10))
		resp.RetryAfterSeconds = qe.RetryAfterSeconds
	}
	writeJSON(w, http.StatusTooManyRequests, resp)
	return true
}

func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
