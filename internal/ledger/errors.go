package ledger

import "errors"

var (
	// ErrInvalidOwnerCount is returned when an account would end up with more
	// than MaxOwners owners.
	ErrInvalidOwnerCount = errors.New("invalid owner count")

	// ErrDuplicateOwner is returned when the owner list repeats a principal.
	ErrDuplicateOwner = errors.New("duplicate owner")

	// ErrInvalidAccount is returned when the account id does not exist.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrNotOwner is returned when the caller is not an owner of the account.
	ErrNotOwner = errors.New("caller is not an account owner")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds is returned when an amount exceeds the account balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidRequest is returned when the withdrawal request does not exist
	// under the account.
	ErrInvalidRequest = errors.New("invalid withdrawal request")

	// ErrSelfApproval is returned when the requester tries to approve its own
	// withdrawal request.
	ErrSelfApproval = errors.New("requester cannot approve own request")

	// ErrAlreadyExecuted is returned when the request has already been paid out.
	ErrAlreadyExecuted = errors.New("request already executed")

	// ErrNotRequester is returned when someone other than the original
	// requester tries to execute the payout.
	ErrNotRequester = errors.New("caller is not the requester")

	// ErrNotApproved is returned when the request has not reached its quorum.
	ErrNotApproved = errors.New("request not approved")

	// ErrInvalidQuorum is returned when the requested approval threshold is
	// out of range for the account.
	ErrInvalidQuorum = errors.New("invalid approval quorum")

	// ErrTransferFailed is returned when the external holdings transfer fails
	// after the internal state change was committed. Internal state is the
	// source of truth and is never rolled back on this error.
	ErrTransferFailed = errors.New("external transfer failed")
)
