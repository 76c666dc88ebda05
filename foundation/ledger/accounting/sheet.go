// Package accounting maintains account balances and implements the fold
// that applies a block's content to them under the fee, burn and reward
// rules.
package accounting

import (
	"fmt"
	"math/big"
	"sync"
)

// Sheet represents the data representation to maintain address balances.
// Balances are arbitrary precision and never negative.
type Sheet struct {
	balances map[string]*big.Int
	mu       sync.RWMutex
}

// NewSheet constructs a new balance sheet for use, seeded with the
// starting balances usually coming from the genesis file.
func NewSheet(seed map[string]uint64) *Sheet {
	sheet := Sheet{
		balances: make(map[string]*big.Int),
	}
	sheet.Reset(seed)

	return &sheet
}

// Reset takes the specified seed and resets the balances.
func (sh *Sheet) Reset(seed map[string]uint64) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.balances = make(map[string]*big.Int)
	for address, value := range seed {
		sh.balances[address] = new(big.Int).SetUint64(value)
	}
}

// Clone makes a copy of the current balance sheet. The fold runs against
// a clone so a failure part way through never leaves the live balances
// half updated.
func (sh *Sheet) Clone() *Sheet {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	clone := Sheet{
		balances: make(map[string]*big.Int, len(sh.balances)),
	}
	for address, value := range sh.balances {
		clone.balances[address] = new(big.Int).Set(value)
	}

	return &clone
}

// Replace swaps the balance sheet for a new version.
func (sh *Sheet) Replace(newSheet *Sheet) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.balances = newSheet.balances
}

// Balance returns the balance for the specified address, zero when the
// address has never been seen.
func (sh *Sheet) Balance(address string) *big.Int {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, exists := sh.balances[address]
	if !exists {
		return big.NewInt(0)
	}

	return new(big.Int).Set(value)
}

// Copy makes a copy of the current balances for all addresses.
func (sh *Sheet) Copy() map[string]*big.Int {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	balances := make(map[string]*big.Int, len(sh.balances))
	for address, value := range sh.balances {
		balances[address] = new(big.Int).Set(value)
	}

	return balances
}

// Equal reports whether two sheets hold identical balances on every
// address.
func (sh *Sheet) Equal(other *Sheet) bool {
	balances := sh.Copy()
	otherBalances := other.Copy()

	if len(balances) != len(otherBalances) {
		return false
	}
	for address, value := range balances {
		otherValue, exists := otherBalances[address]
		if !exists || value.Cmp(otherValue) != 0 {
			return false
		}
	}

	return true
}

// =============================================================================

// credit adds the amount to the address balance.
func (sh *Sheet) credit(address string, amount *big.Int) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	value, exists := sh.balances[address]
	if !exists {
		value = big.NewInt(0)
	}
	sh.balances[address] = value.Add(value, amount)
}

// debit removes the amount from the address balance, guarding the
// non-negative invariant.
func (sh *Sheet) debit(address string, amount *big.Int) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	value, exists := sh.balances[address]
	if !exists {
		value = big.NewInt(0)
	}
	if value.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance, address %s, bal %s, needed %s", address, value, amount)
	}
	sh.balances[address] = value.Sub(value, amount)

	return nil
}

// set pins the address balance to an exact amount.
func (sh *Sheet) set(address string, amount *big.Int) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.balances[address] = new(big.Int).Set(amount)
}
