package state

import (
	"errors"
	"fmt"

	"github.com/veralabs/ledger/foundation/ledger/record"
)

// Set of errors the validation operations can return. The two sentinels
// stand for the tri-state outcome of a range check: nil means valid,
// ErrChainInvalid means a block failed a check, ErrBlockMissing means the
// requested range isn't covered by the chain at all. Callers must be able
// to tell them apart.
var (
	ErrChainInvalid = errors.New("chain is invalid")
	ErrBlockMissing = errors.New("block is missing")
)

// ValidateRange applies the pairwise integrity check across the blocks in
// [start, end].
func (s *State) ValidateRange(start uint64, end uint64) error {
	chain, ignored := s.snapshot()
	return validateRange(chain, ignored, start, end)
}

// ValidateChain checks the whole chain from genesis to the tip.
func (s *State) ValidateChain() error {
	chain, ignored := s.snapshot()
	if len(chain) == 0 {
		return ErrBlockMissing
	}

	return validateRange(chain, ignored, 0, uint64(len(chain)-1))
}

// snapshot captures the chain and the tombstone set for a consistent
// read. The chain is append-only so sharing the slice is safe.
func (s *State) snapshot() ([]record.Block, map[IgnoreKey]struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ignored := make(map[IgnoreKey]struct{}, len(s.ignored))
	for key := range s.ignored {
		ignored[key] = struct{}{}
	}

	return s.chain, ignored
}

// =============================================================================

func validateRange(chain []record.Block, ignored map[IgnoreKey]struct{}, start uint64, end uint64) error {
	if start > end || end >= uint64(len(chain)) {
		return fmt.Errorf("range [%d,%d] over %d blocks: %w", start, end, len(chain), ErrBlockMissing)
	}

	for i := start; i <= end; i++ {
		var previous *record.Block
		if i > 0 {
			previous = &chain[i-1]
		}

		if err := validatePair(chain[i], previous, ignored); err != nil {
			return fmt.Errorf("blk[%d]: %w", i, err)
		}
	}

	return nil
}

// validatePair checks one block against its predecessor. Ignored blocks,
// and blocks whose parent hash points at an ignored block, are invisible
// to validation and treated as automatically valid.
func validatePair(current record.Block, previous *record.Block, ignored map[IgnoreKey]struct{}) error {
	if isIgnored(current, ignored) || parentIgnored(current, ignored) {
		return nil
	}

	if err := current.ValidateSignatures(); err != nil {
		return fmt.Errorf("%s: %w", err, ErrChainInvalid)
	}

	hash := current.Hash()
	if !record.IsHashSolved(current.Difficulty, hash) {
		return fmt.Errorf("hash %s does not satisfy difficulty %d: %w", hash, current.Difficulty, ErrChainInvalid)
	}

	if previous == nil {
		if current.Number == 0 && current.PrevBlockHash != record.GenesisParent {
			return fmt.Errorf("genesis parent hash %q: %w", current.PrevBlockHash, ErrChainInvalid)
		}
		return nil
	}

	if current.Number != previous.Number+1 {
		return fmt.Errorf("block number %d does not follow %d: %w", current.Number, previous.Number, ErrChainInvalid)
	}

	if isIgnored(*previous, ignored) {
		return nil
	}

	if current.PrevBlockHash != previous.Hash() {
		return fmt.Errorf("parent hash %s does not match %s: %w", current.PrevBlockHash, previous.Hash(), ErrChainInvalid)
	}

	return nil
}

// isIgnored reports whether the block carries an (index, hash) tombstone.
func isIgnored(block record.Block, ignored map[IgnoreKey]struct{}) bool {
	_, exists := ignored[IgnoreKey{Number: block.Number, Hash: block.Hash()}]
	return exists
}

// parentIgnored reports whether the block's parent hash matches the hash
// of any ignored block.
func parentIgnored(block record.Block, ignored map[IgnoreKey]struct{}) bool {
	for key := range ignored {
		if key.Hash == block.PrevBlockHash {
			return true
		}
	}
	return false
}
