// Package privatebank models a single-authority ledger: the authority
// (identified at construction, together with its pin) onboards customers
// either directly or by approving customer-filed requests, and each approved
// customer keeps its own pin-protected balance.
package privatebank

import (
	"fmt"
	"sync"

	"github.com/jointvault/backend/internal/ledger"
)

// Bank is the private ledger service object: all state is reachable only
// through its method surface. The bank mutex guards the customer map;
// each customer record carries its own mutex so balance and pin mutations
// on different customers do not contend.
type Bank struct {
	mu        sync.RWMutex
	authority string
	customers map[string]*customer
	holdings  ledger.Holdings
}

type customer struct {
	mu       sync.Mutex
	address  string
	pin      int64
	approved bool
	balance  int64
}

// CustomerView is a copy-out snapshot of a customer record; the pin is never
// exposed.
type CustomerView struct {
	Address  string `json:"address"`
	Approved bool   `json:"approved"`
	Balance  int64  `json:"balance"`
}

// New builds the bank with its fixed authority. The authority is seeded as an
// approved customer of itself so it can hold and move its own balance.
func New(authority string, authorityPin int64, holdings ledger.Holdings) *Bank {
	b := &Bank{
		authority: authority,
		customers: make(map[string]*customer),
		holdings:  holdings,
	}
	b.customers[authority] = &customer{address: authority, pin: authorityPin, approved: true}
	return b
}

// Authority reports the fixed administrator principal.
func (b *Bank) Authority() string {
	return b.authority
}

// AddCustomer onboards a customer directly: authority-only, immediately
// approved, overwriting any previous record for the address.
func (b *Bank) AddCustomer(callerID, address string, pin int64) error {
	if callerID != b.authority {
		return ErrNotAuthority
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customers[address] = &customer{address: address, pin: pin, approved: true}
	return nil
}

// RequestBeCustomer files an onboarding request for the caller. Re-filing
// before approval overwrites the pending record, latest pin wins; an already
// approved customer cannot re-file.
func (b *Bank) RequestBeCustomer(callerID string, pin int64) error {
	if callerID == b.authority {
		return ErrAuthorityCannotRequest
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.customers[callerID]; ok && c.approved {
		return ErrAlreadyApproved
	}
	b.customers[callerID] = &customer{address: callerID, pin: pin}
	return nil
}

// ApproveNewCustomer accepts a pending onboarding request: authority-only.
func (b *Bank) ApproveNewCustomer(callerID, address string) error {
	if callerID != b.authority {
		return ErrNotAuthority
	}
	c, err := b.lookup(address)
	if err != nil {
		return ErrNoSuchRequest
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.approved = true
	return nil
}

// ChangeMyPin rotates the caller's pin after checking the old one.
func (b *Bank) ChangeMyPin(callerID string, oldPin, newPin int64) error {
	c, err := b.approvedCustomer(callerID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.approved {
		return ErrNotApprovedCustomer
	}
	if c.pin != oldPin {
		return ErrPinMismatch
	}
	c.pin = newPin
	return nil
}

// Deposit moves amount from the caller's external holding into the caller's
// bank balance. Approved customers only; the holding debit happens first, so
// a failed transfer mutates nothing.
func (b *Bank) Deposit(callerID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	c, err := b.approvedCustomer(callerID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.approved {
		return ErrNotApprovedCustomer
	}
	if err := b.holdings.Debit(callerID, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	c.balance += amount
	return nil
}

// Withdraw pays amount out of the caller's bank balance to the caller's
// external holding. Pin-gated; the balance debit applies before the external
// credit is attempted and is never rolled back on transfer failure.
func (b *Bank) Withdraw(callerID string, pin, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	c, err := b.approvedCustomer(callerID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.approved {
		return ErrNotApprovedCustomer
	}
	if c.pin != pin {
		return ErrPinMismatch
	}
	if c.balance < amount {
		return ErrInsufficientFunds
	}
	c.balance -= amount

	if err := b.holdings.Credit(callerID, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

// MyBalance reports the caller's bank balance. Approved customers only.
func (b *Bank) MyBalance(callerID string) (int64, error) {
	c, err := b.approvedCustomer(callerID)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.approved {
		return 0, ErrNotApprovedCustomer
	}
	return c.balance, nil
}

// Customer returns a snapshot of a customer record, for the authority's
// review of pending requests.
func (b *Bank) Customer(callerID, address string) (CustomerView, error) {
	if callerID != b.authority {
		return CustomerView{}, ErrNotAuthority
	}
	c, err := b.lookup(address)
	if err != nil {
		return CustomerView{}, ErrNoSuchRequest
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return CustomerView{Address: c.address, Approved: c.approved, Balance: c.balance}, nil
}

func (b *Bank) lookup(address string) (*customer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.customers[address]
	if !ok {
		return nil, ErrNoSuchRequest
	}
	return c, nil
}

// approvedCustomer resolves the caller's record, rejecting unknown callers.
// The approved flag is re-checked under the customer lock by every caller,
// since approval can race with the lookup.
func (b *Bank) approvedCustomer(callerID string) (*customer, error) {
	c, err := b.lookup(callerID)
	if err != nil {
		return nil, ErrNotApprovedCustomer
	}
	return c, nil
}
