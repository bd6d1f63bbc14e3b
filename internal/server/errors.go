package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	agreementdomain "github.com/caiohomem/assistente-sub001/internal/agreement/domain"
	"github.com/caiohomem/assistente-sub001/internal/agreement/rules"
	escrowdomain "github.com/caiohomem/assistente-sub001/internal/escrow/domain"
	"github.com/caiohomem/assistente-sub001/internal/money"
	negotiationdomain "github.com/caiohomem/assistente-sub001/internal/negotiation/domain"
	"github.com/caiohomem/assistente-sub001/internal/persistence"
	walletdomain "github.com/caiohomem/assistente-sub001/internal/wallet/domain"
)

// ErrNotFound is the generic 404 for routes and missing resources.
var ErrNotFound = errors.New("not_found")

// APIError is the wire shape of every error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string { return e.Code }

func invalidRequestError() *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// AbortWithError writes the error response and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
}

func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case isNotFoundError(err):
		return &APIError{Status: http.StatusNotFound, Code: err.Error(), Message: "resource not found"}
	case isThrottleError(err):
		return &APIError{Status: http.StatusTooManyRequests, Code: err.Error(), Message: "limit reached, retry later"}
	case isConflictError(err):
		return &APIError{Status: http.StatusConflict, Code: err.Error(), Message: "operation conflicts with current state"}
	case isValidationError(err):
		return &APIError{Status: http.StatusBadRequest, Code: err.Error(), Message: "invalid request"}
	default:
		return &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal error"}
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, persistence.ErrNotFound),
		errors.Is(err, escrowdomain.ErrAccountNotFound),
		errors.Is(err, escrowdomain.ErrTransactionNotFound),
		errors.Is(err, agreementdomain.ErrAgreementNotFound),
		errors.Is(err, agreementdomain.ErrPartyNotFound),
		errors.Is(err, agreementdomain.ErrMilestoneNotFound),
		errors.Is(err, negotiationdomain.ErrSessionNotFound),
		errors.Is(err, negotiationdomain.ErrProposalNotFound):
		return true
	}
	return false
}

func isThrottleError(err error) bool {
	switch {
	case errors.Is(err, negotiationdomain.ErrProposalLimitExceeded),
		errors.Is(err, negotiationdomain.ErrPartyProposalLimitExceeded),
		errors.Is(err, negotiationdomain.ErrAiSuggestionLimitExceeded),
		errors.Is(err, negotiationdomain.ErrAiCooldownActive):
		return true
	}
	return false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, persistence.ErrStaleVersion),
		errors.Is(err, walletdomain.ErrInsufficientBalance),
		errors.Is(err, escrowdomain.ErrInsufficientEscrowBalance),
		errors.Is(err, escrowdomain.ErrAccountNotActive),
		errors.Is(err, escrowdomain.ErrInvalidTransactionState),
		errors.Is(err, agreementdomain.ErrNotDraft),
		errors.Is(err, agreementdomain.ErrNotActive),
		errors.Is(err, agreementdomain.ErrAlreadyCompleted),
		errors.Is(err, agreementdomain.ErrAlreadyCanceled),
		errors.Is(err, agreementdomain.ErrNoParties),
		errors.Is(err, agreementdomain.ErrNoMilestones),
		errors.Is(err, agreementdomain.ErrPartiesNotAllAccepted),
		errors.Is(err, agreementdomain.ErrMilestonesNotAllCompleted),
		errors.Is(err, agreementdomain.ErrMilestoneNotCompleted),
		errors.Is(err, agreementdomain.ErrMilestoneNotOfAgreement),
		errors.Is(err, agreementdomain.ErrPayoutExceedsMilestone),
		errors.Is(err, agreementdomain.ErrMilestonePayoutReleased),
		errors.Is(err, agreementdomain.ErrEscrowNotAttached),
		errors.Is(err, rules.ErrSplitMustEqualHundred),
		errors.Is(err, rules.ErrMilestonesMustEqualTotal),
		errors.Is(err, negotiationdomain.ErrSessionNotOpen):
		return true
	}
	return false
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, money.ErrNegativeAmount),
		errors.Is(err, money.ErrCurrencyMismatch),
		errors.Is(err, money.ErrPercentageOutOfRange),
		errors.Is(err, walletdomain.ErrInvalidOwner),
		errors.Is(err, walletdomain.ErrInvalidAmount),
		errors.Is(err, walletdomain.ErrMissingIdempotencyKey),
		errors.Is(err, escrowdomain.ErrInvalidAccount),
		errors.Is(err, escrowdomain.ErrInvalidAmount),
		errors.Is(err, escrowdomain.ErrInvalidCurrency),
		errors.Is(err, escrowdomain.ErrInvalidApprovalType),
		errors.Is(err, escrowdomain.ErrInvalidConnectedAccount),
		errors.Is(err, escrowdomain.ErrCurrencyMismatch),
		errors.Is(err, agreementdomain.ErrInvalidAgreement),
		errors.Is(err, agreementdomain.ErrMissingTitle),
		errors.Is(err, agreementdomain.ErrInvalidTotalValue),
		errors.Is(err, agreementdomain.ErrInvalidRole),
		errors.Is(err, agreementdomain.ErrInvalidSplit),
		errors.Is(err, agreementdomain.ErrSplitExceedsLimit),
		errors.Is(err, agreementdomain.ErrPartyAlreadyExists),
		errors.Is(err, agreementdomain.ErrMissingPartyName),
		errors.Is(err, agreementdomain.ErrMissingPartyEmail),
		errors.Is(err, agreementdomain.ErrMissingMilestoneDescription),
		errors.Is(err, agreementdomain.ErrInvalidMilestoneValue),
		errors.Is(err, agreementdomain.ErrMissingDueDate),
		errors.Is(err, agreementdomain.ErrMilestoneSumExceedsTotal),
		errors.Is(err, agreementdomain.ErrCurrencyMismatch),
		errors.Is(err, agreementdomain.ErrInvalidEscrowAccount),
		errors.Is(err, agreementdomain.ErrInvalidPayoutTransaction),
		errors.Is(err, negotiationdomain.ErrInvalidSession),
		errors.Is(err, negotiationdomain.ErrTitleRequired),
		errors.Is(err, negotiationdomain.ErrContentRequired),
		errors.Is(err, negotiationdomain.ErrInvalidSource),
		errors.Is(err, negotiationdomain.ErrMissingContextForAI),
		errors.Is(err, negotiationdomain.ErrInvalidGeneratedAgreement):
		return true
	}
	return false
}
