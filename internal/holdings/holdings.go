// Package holdings is the in-process implementation of the value-transfer
// collaborator: it tracks each principal's external holding and moves value
// synchronously when a ledger triggers a transfer.
package holdings

import (
	"errors"
	"sync"
)

// ErrInsufficientHolding is returned when a debit exceeds the principal's
// external holding.
var ErrInsufficientHolding = errors.New("insufficient external holding")

// Memory keeps per-principal holdings in a mutex-guarded map. Unknown
// principals start at zero.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int64
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[string]int64)}
}

// Seed sets a principal's holding directly, for bootstrap and tests.
func (m *Memory) Seed(principal string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[principal] = amount
}

// Balance reports the principal's current holding.
func (m *Memory) Balance(principal string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[principal]
}

func (m *Memory) Debit(principal string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[principal] < amount {
		return ErrInsufficientHolding
	}
	m.balances[principal] -= amount
	return nil
}

func (m *Memory) Credit(principal string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[principal] += amount
	return nil
}
