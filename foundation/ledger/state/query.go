package state

import (
	"fmt"
	"math/big"

	"github.com/veralabs/ledger/foundation/ledger/record"
)

// ChainLength returns the number of blocks in the chain, the genesis
// block included.
func (s *State) ChainLength() uint64 {
	return s.chainLength()
}

// RetrieveBlock returns the block stored at the specified index.
func (s *State) RetrieveBlock(number uint64) (record.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if number >= uint64(len(s.chain)) {
		return record.Block{}, fmt.Errorf("blk[%d]: %w", number, ErrBlockNotFound)
	}

	return s.chain[number], nil
}

// RetrieveBlockByHash returns the block stored at the specified index,
// but only when its recomputed hash matches.
func (s *State) RetrieveBlockByHash(number uint64, hash string) (record.Block, error) {
	block, err := s.RetrieveBlock(number)
	if err != nil {
		return record.Block{}, err
	}

	if block.Hash() != hash {
		return record.Block{}, fmt.Errorf("blk[%d] hash[%s]: %w", number, hash, ErrBlockNotFound)
	}

	return block, nil
}

// RetrieveContent returns the content entries of the block at the
// specified index.
func (s *State) RetrieveContent(number uint64) ([]record.Content, error) {
	block, err := s.RetrieveBlock(number)
	if err != nil {
		return nil, err
	}

	return block.Content, nil
}

// Balances returns a copy of the current balances for every address.
func (s *State) Balances() map[string]*big.Int {
	return s.balances.Copy()
}

// Balance returns the current balance of one address, zero when the
// address has never been seen.
func (s *State) Balance(address string) *big.Int {
	return s.balances.Balance(address)
}

// BalancesThrough replays the fold from scratch over the chain prefix
// ending at the specified block, skipping ignored blocks, and returns the
// balances as they stood at that point in history. The live balances are
// untouched.
func (s *State) BalancesThrough(end uint64) (map[string]*big.Int, error) {
	chain, ignored := s.snapshot()

	if end >= uint64(len(chain)) {
		return nil, fmt.Errorf("blk[%d]: %w", end, ErrBlockNotFound)
	}

	sheet, err := s.refold(chain[:end+1], ignored)
	if err != nil {
		return nil, err
	}

	return sheet.Copy(), nil
}
