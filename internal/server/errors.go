package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	accountdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/account/domain"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/actor"
	auditdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/audit/domain"
	channeldomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/channel/domain"
	cleanupdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/cleanup/domain"
	ledgerdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/domain"
	obscontext "github.com/ShaneWong116/CurrencyExchange-sub000/internal/observability/context"
	settlementdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/settlement/domain"
	statisticsdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/statistics/domain"
	transactiondomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/transaction/domain"
)

// apiError is the single wire shape for failures.
type apiError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (e *apiError) Error() string { return e.Code }

var (
	ErrNotFound           = &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrTooManyRequests    = &apiError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
	ErrServiceUnavailable = &apiError{Status: http.StatusServiceUnavailable, Code: "service_unavailable", Message: "temporarily unavailable, retry"}
)

func invalidRequestError() *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "malformed request body"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{Status: http.StatusUnprocessableEntity, Code: code, Message: message, Field: field}
}

// AbortWithError translates domain sentinels into HTTP responses. Unknown
// errors become opaque 500s so internals never leak to clients.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	status := statusForDomainError(err)
	switch status {
	case http.StatusInternalServerError:
		_ = c.Error(err)
		// The request id gives operators a handle into the logs without
		// exposing the underlying error.
		c.AbortWithStatusJSON(status, gin.H{"error": &apiError{
			Code:      "internal_error",
			Message:   "internal error",
			RequestID: obscontext.RequestIDFromGin(c),
		}})
	default:
		c.AbortWithStatusJSON(status, gin.H{"error": &apiError{
			Code:    err.Error(),
			Message: err.Error(),
		}})
	}
}

func statusForDomainError(err error) int {
	switch {
	case isNotFoundError(err):
		return http.StatusNotFound
	case isConflictError(err):
		return http.StatusConflict
	case errors.Is(err, ledgerdomain.ErrRetryable):
		return http.StatusServiceUnavailable
	case isValidationError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, channeldomain.ErrChannelNotFound),
		errors.Is(err, accountdomain.ErrAccountNotFound),
		errors.Is(err, transactiondomain.ErrTransactionNotFound),
		errors.Is(err, settlementdomain.ErrSettlementNotFound):
		return true
	}
	return false
}

// Conflicts are requests that are well formed but forbidden by lifecycle
// state: touching a settled record or settling an empty batch.
func isConflictError(err error) bool {
	switch {
	case errors.Is(err, transactiondomain.ErrImmutableRecord),
		errors.Is(err, settlementdomain.ErrNothingToSettle),
		errors.Is(err, channeldomain.ErrChannelInactive):
		return true
	}
	return false
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, actor.ErrInvalidActor),
		errors.Is(err, channeldomain.ErrInvalidName),
		errors.Is(err, channeldomain.ErrInvalidStatus),
		errors.Is(err, accountdomain.ErrInvalidName),
		errors.Is(err, ledgerdomain.ErrInvalidChannel),
		errors.Is(err, ledgerdomain.ErrInvalidCurrency),
		errors.Is(err, ledgerdomain.ErrInvalidFlow),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidDate),
		errors.Is(err, transactiondomain.ErrInvalidType),
		errors.Is(err, transactiondomain.ErrInvalidStatus),
		errors.Is(err, transactiondomain.ErrInvalidAmount),
		errors.Is(err, transactiondomain.ErrInvalidRate),
		errors.Is(err, transactiondomain.ErrInvalidChannel),
		errors.Is(err, transactiondomain.ErrInvalidAccount),
		errors.Is(err, transactiondomain.ErrInvalidDate),
		errors.Is(err, statisticsdomain.ErrInvalidStatType),
		errors.Is(err, statisticsdomain.ErrInvalidReference),
		errors.Is(err, settlementdomain.ErrInvalidExpense),
		errors.Is(err, settlementdomain.ErrInvalidActor),
		errors.Is(err, settlementdomain.ErrInvalidDate),
		errors.Is(err, cleanupdomain.ErrInvalidCategory),
		errors.Is(err, cleanupdomain.ErrInvalidTimeRange),
		errors.Is(err, cleanupdomain.ErrInvalidOperator),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidActor):
		return true
	}
	return false
}
