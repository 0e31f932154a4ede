package ledger

// Holdings is the value-transfer collaborator: it moves money between a
// principal's external holding and the ledger. The ledger only triggers
// transfers and records the resulting balances; it never moves currency
// itself.
type Holdings interface {
	// Debit removes amount from the principal's external holding, failing
	// if the holding is insufficient.
	Debit(principal string, amount int64) error

	// Credit adds amount to the principal's external holding.
	Credit(principal string, amount int64) error
}
