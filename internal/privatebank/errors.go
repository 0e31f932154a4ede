package privatebank

import "errors"

var (
	// ErrNotAuthority is returned when a caller other than the bank authority
	// attempts an authority-only operation.
	ErrNotAuthority = errors.New("caller is not the bank authority")

	// ErrAuthorityCannotRequest is returned when the authority tries to file
	// a customer onboarding request for itself.
	ErrAuthorityCannotRequest = errors.New("authority cannot request to be a customer")

	// ErrNoSuchRequest is returned when approving an address with no
	// onboarding record.
	ErrNoSuchRequest = errors.New("no onboarding request for address")

	// ErrAlreadyApproved is returned when an approved customer re-files an
	// onboarding request.
	ErrAlreadyApproved = errors.New("customer already approved")

	// ErrNotApprovedCustomer is returned when the caller has no approved
	// customer record.
	ErrNotApprovedCustomer = errors.New("caller is not an approved customer")

	// ErrPinMismatch is returned when the presented pin does not match the
	// customer's current pin.
	ErrPinMismatch = errors.New("pin mismatch")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the
	// customer's balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTransferFailed is returned when the external holdings transfer
	// fails; internal state is the source of truth and stays applied.
	ErrTransferFailed = errors.New("external transfer failed")
)
