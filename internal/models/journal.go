package models

import (
	"time"
)

// Movement kinds recorded by the journal.
const (
	MovementJointDeposit  = "JOINT_DEPOSIT"
	MovementJointWithdraw = "JOINT_WITHDRAW"
	MovementBankDeposit   = "BANK_DEPOSIT"
	MovementBankWithdraw  = "BANK_WITHDRAW"
)

// MovementEntry is one row of the durable movement journal: an executed
// balance change on either ledger, keyed so a replay is idempotent.
type MovementEntry struct {
	ID        int       `json:"id" db:"id"`
	EntryID   string    `json:"entry_id" db:"entry_id"`     // uuid, idempotency key
	Subsystem string    `json:"subsystem" db:"subsystem"`   // JOINT or BANK
	EntityKey string    `json:"entity_key" db:"entity_key"` // accountId or customer address
	RequestID int64     `json:"request_id" db:"request_id"` // withdrawal request id, -1 otherwise
	Principal string    `json:"principal" db:"principal"`
	Kind      string    `json:"kind" db:"kind"`
	Amount    int64     `json:"amount" db:"amount"`   // smallest monetary unit
	Balance   int64     `json:"balance" db:"balance"` // balance after the movement
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
