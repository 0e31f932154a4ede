package services

import (
	"errors"
	"net/http"

	"github.com/jointvault/backend/internal/ledger"
	"github.com/jointvault/backend/internal/privatebank"
)

// statusForError maps a core error kind to its HTTP status. Every core
// failure is a permanent caller-correctable condition, so nothing maps to a
// retryable 5xx except the external transfer collaborator failing.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidOwnerCount),
		errors.Is(err, ledger.ErrDuplicateOwner),
		errors.Is(err, ledger.ErrInvalidQuorum),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, privatebank.ErrInvalidAmount):
		return http.StatusBadRequest

	case errors.Is(err, ledger.ErrInvalidAccount),
		errors.Is(err, ledger.ErrInvalidRequest),
		errors.Is(err, privatebank.ErrNoSuchRequest):
		return http.StatusNotFound

	case errors.Is(err, ledger.ErrNotOwner),
		errors.Is(err, ledger.ErrNotRequester),
		errors.Is(err, ledger.ErrSelfApproval),
		errors.Is(err, privatebank.ErrNotAuthority),
		errors.Is(err, privatebank.ErrAuthorityCannotRequest),
		errors.Is(err, privatebank.ErrNotApprovedCustomer),
		errors.Is(err, privatebank.ErrPinMismatch):
		return http.StatusForbidden

	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrAlreadyExecuted),
		errors.Is(err, ledger.ErrNotApproved),
		errors.Is(err, privatebank.ErrInsufficientFunds),
		errors.Is(err, privatebank.ErrAlreadyApproved):
		return http.StatusConflict

	case errors.Is(err, ledger.ErrTransferFailed),
		errors.Is(err, privatebank.ErrTransferFailed):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
