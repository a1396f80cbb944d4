package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"capigastos/internal/core"
	"capigastos/internal/log"
	"capigastos/internal/retry"
	"capigastos/internal/services"
)

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	parsedTime, err := time.Parse(core.DateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.DateOf(parsedTime), nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// retryAfterSeconds is suggested to clients when the store stayed rate
// limited through every retry.
const retryAfterSeconds = 30

// writeError maps the error taxonomy onto status codes:
// validation 400, not found 404, exhausted retries 503, anything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.FromContext(r.Context())

	var (
		ve *core.ValidationError
		te *services.TransferError
	)
	switch {
	case errors.As(err, &ve):
		logger.WarnContext(r.Context(), "Request rejected",
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err.Error())
		body := errorBody{Error: err.Error(), Type: "validation", Field: ve.Field}
		NewJSONResponse().Status(http.StatusBadRequest).Body(body).Write(w)
		return

	case core.IsNotFound(err):
		NotFoundError(err.Error()).Write(w)
		return

	case errors.As(err, &te):
		compensated := te.Compensated
		body := errorBody{Error: err.Error(), Type: "transfer_failed", TransferID: te.TransferID, Compensated: &compensated}
		status := http.StatusInternalServerError
		if retry.IsTransientError(err) {
			status = http.StatusServiceUnavailable
		}
		logger.LogError(r.Context(), "Transfer failed", err, log.OpTransfer,
			log.LogFields{log.FieldTransferID: te.TransferID, "compensated": compensated})
		NewJSONResponse().Status(status).Header("Retry-After", strconv.Itoa(retryAfterSeconds)).Body(body).Write(w)
		return

	case retry.IsTransientError(err):
		logger.WarnContext(r.Context(), "Store unavailable",
			log.FieldErrorType, log.ErrorTypeTransient,
			log.FieldError, err.Error())
		ErrorResponse(http.StatusServiceUnavailable, "unavailable", "the ledger store is busy, try again shortly").
			Header("Retry-After", strconv.Itoa(retryAfterSeconds)).
			Write(w)
		return
	}

	logger.LogError(r.Context(), "Request failed", err, r.Method+" "+r.URL.Path,
		log.LogFields{log.FieldErrorType: log.ErrorTypeInternal})
	InternalServerError("internal error").Write(w)
}
