package ledger

import (
	"fmt"
	"sync"
)

// MaxOwners caps the owner set of a joint account: the creator plus up to
// three co-owners.
const MaxOwners = 4

// JointLedger owns every joint account and its withdrawal requests. Records
// live in memory, addressed by sequential id, with an owner index maintained
// on every creation. The ledger mutex only guards the record maps; each
// account carries its own mutex so that operations on different accounts
// proceed in parallel while mutations of the same account stay serialized.
type JointLedger struct {
	mu            sync.RWMutex
	accounts      map[int64]*account
	byOwner       map[string][]int64
	nextID        int64
	holdings      Holdings
	defaultQuorum int
}

type account struct {
	mu       sync.Mutex
	id       int64
	owners   []string
	ownerSet map[string]struct{}
	quorum   int
	balance  int64
	requests []*withdrawalRequest
}

type withdrawalRequest struct {
	id        int64
	requester string
	amount    int64
	approvals map[string]struct{}
	executed  bool
}

// AccountView is a copy-out snapshot of a joint account.
type AccountView struct {
	ID      int64    `json:"id"`
	Owners  []string `json:"owners"`
	Quorum  int      `json:"quorum"`
	Balance int64    `json:"balance"`
}

// RequestView is a copy-out snapshot of a withdrawal request.
type RequestView struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"accountId"`
	Requester string `json:"requester"`
	Amount    int64  `json:"amount"`
	Approvals int    `json:"approvals"`
	Executed  bool   `json:"executed"`
}

// NewJointLedger builds an empty ledger. defaultQuorum is the approval
// threshold applied to accounts that do not choose their own; values below 1
// are clamped to 1.
func NewJointLedger(holdings Holdings, defaultQuorum int) *JointLedger {
	if defaultQuorum < 1 {
		defaultQuorum = 1
	}
	return &JointLedger{
		accounts:      make(map[int64]*account),
		byOwner:       make(map[string][]int64),
		holdings:      holdings,
		defaultQuorum: defaultQuorum,
	}
}

// CreateAccount allocates a new joint account owned by the caller plus up to
// three distinct co-owners and returns its id. quorum is the number of
// distinct non-requester approvals a withdrawal needs; 0 means the ledger
// default.
func (l *JointLedger) CreateAccount(callerID string, coOwners []string, quorum int) (int64, error) {
	if len(coOwners) > MaxOwners-1 {
		return 0, ErrInvalidOwnerCount
	}

	ownerSet := map[string]struct{}{callerID: {}}
	owners := append([]string{callerID}, coOwners...)
	for _, co := range coOwners {
		if _, dup := ownerSet[co]; dup {
			return 0, ErrDuplicateOwner
		}
		ownerSet[co] = struct{}{}
	}

	if quorum == 0 {
		quorum = l.defaultQuorum
	}
	if quorum < 1 || quorum > MaxOwners-1 {
		return 0, ErrInvalidQuorum
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	acct := &account{
		id:       l.nextID,
		owners:   owners,
		ownerSet: ownerSet,
		quorum:   quorum,
	}
	l.accounts[acct.id] = acct
	for _, o := range owners {
		l.byOwner[o] = append(l.byOwner[o], acct.id)
	}
	return acct.id, nil
}

// AccountsFor returns snapshots of every account the caller owns, in
// creation order. It never fails; an unknown principal gets an empty slice.
func (l *JointLedger) AccountsFor(callerID string) []AccountView {
	l.mu.RLock()
	ids := append([]int64(nil), l.byOwner[callerID]...)
	accts := make([]*account, 0, len(ids))
	for _, id := range ids {
		accts = append(accts, l.accounts[id])
	}
	l.mu.RUnlock()

	views := make([]AccountView, 0, len(accts))
	for _, a := range accts {
		a.mu.Lock()
		views = append(views, a.view())
		a.mu.Unlock()
	}
	return views
}

// Account returns a snapshot of a single account.
func (l *JointLedger) Account(accountID int64) (AccountView, error) {
	acct, err := l.lookup(accountID)
	if err != nil {
		return AccountView{}, err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return acct.view(), nil
}

// Deposit moves amount from the caller's external holding into the account.
// The holding debit happens first; on any failure no balance changes.
func (l *JointLedger) Deposit(callerID string, accountID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	acct, err := l.lookup(accountID)
	if err != nil {
		return err
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()

	if !acct.isOwner(callerID) {
		return ErrNotOwner
	}
	if err := l.holdings.Debit(callerID, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	acct.balance += amount
	return nil
}

// RequestWithdraw queues a withdrawal request for the account and returns its
// id. The amount is validated against the balance at request time; funds are
// not reserved, so execution re-validates.
func (l *JointLedger) RequestWithdraw(callerID string, accountID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	acct, err := l.lookup(accountID)
	if err != nil {
		return 0, err
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()

	if !acct.isOwner(callerID) {
		return 0, ErrNotOwner
	}
	if amount > acct.balance {
		return 0, ErrInsufficientFunds
	}

	req := &withdrawalRequest{
		id:        int64(len(acct.requests)),
		requester: callerID,
		amount:    amount,
		approvals: make(map[string]struct{}),
	}
	acct.requests = append(acct.requests, req)
	return req.id, nil
}

// ApproveWithdraw records the caller's approval of a pending request.
// Re-approval by the same owner is a no-op; the requester can never approve
// its own request.
func (l *JointLedger) ApproveWithdraw(callerID string, accountID, requestID int64) error {
	acct, err := l.lookup(accountID)
	if err != nil {
		return err
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()

	req, err := acct.request(requestID)
	if err != nil {
		return err
	}
	if !acct.isOwner(callerID) {
		return ErrNotOwner
	}
	if callerID == req.requester {
		return ErrSelfApproval
	}
	if req.executed {
		return ErrAlreadyExecuted
	}
	req.approvals[callerID] = struct{}{}
	return nil
}

// ApprovalCount reports how many distinct owners approved the request.
func (l *JointLedger) ApprovalCount(accountID, requestID int64) (int, error) {
	acct, err := l.lookup(accountID)
	if err != nil {
		return 0, err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	req, err := acct.request(requestID)
	if err != nil {
		return 0, err
	}
	return len(req.approvals), nil
}

// Request returns a snapshot of a withdrawal request.
func (l *JointLedger) Request(accountID, requestID int64) (RequestView, error) {
	acct, err := l.lookup(accountID)
	if err != nil {
		return RequestView{}, err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	req, err := acct.request(requestID)
	if err != nil {
		return RequestView{}, err
	}
	return RequestView{
		ID:        req.id,
		AccountID: accountID,
		Requester: req.requester,
		Amount:    req.amount,
		Approvals: len(req.approvals),
		Executed:  req.executed,
	}, nil
}

// Withdraw executes an approved request: only the original requester may call
// it, exactly once. The executed flag flips and the balance debit applies as
// one unit under the account lock, before the external credit is attempted;
// a failed credit surfaces as ErrTransferFailed without undoing the debit.
func (l *JointLedger) Withdraw(callerID string, accountID, requestID int64) error {
	acct, err := l.lookup(accountID)
	if err != nil {
		return err
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()

	req, err := acct.request(requestID)
	if err != nil {
		return err
	}
	if callerID != req.requester {
		return ErrNotRequester
	}
	if len(req.approvals) < acct.quorum {
		return ErrNotApproved
	}
	if req.executed {
		return ErrAlreadyExecuted
	}
	if req.amount > acct.balance {
		return ErrInsufficientFunds
	}

	req.executed = true
	acct.balance -= req.amount

	if err := l.holdings.Credit(callerID, req.amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

func (l *JointLedger) lookup(accountID int64) (*account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[accountID]
	if !ok {
		return nil, ErrInvalidAccount
	}
	return acct, nil
}

// view copies the account state; callers hold a.mu.
func (a *account) view() AccountView {
	return AccountView{
		ID:      a.id,
		Owners:  append([]string(nil), a.owners...),
		Quorum:  a.quorum,
		Balance: a.balance,
	}
}

func (a *account) isOwner(principal string) bool {
	_, ok := a.ownerSet[principal]
	return ok
}

// request resolves a request id; callers hold a.mu.
func (a *account) request(requestID int64) (*withdrawalRequest, error) {
	if requestID < 0 || requestID >= int64(len(a.requests)) {
		return nil, ErrInvalidRequest
	}
	return a.requests[requestID], nil
}
