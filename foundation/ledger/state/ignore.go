package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/veralabs/ledger/foundation/events"
)

// Set of errors the tombstone operations can return.
var (
	ErrBlockNotFound  = errors.New("block not found")
	ErrAlreadyIgnored = errors.New("block is already ignored")
	ErrNotIgnored     = errors.New("block is not ignored")
)

// Ignore tombstones the block identified by (number, hash): it stays in
// the stored sequence but disappears from validation and balance folding.
// Balances are recomputed before the call returns.
func (s *State) Ignore(ctx context.Context, number uint64, hash string) error {
	return s.queue.submit(ctx, "ignore", func() error {
		if _, err := s.RetrieveBlockByHash(number, hash); err != nil {
			return err
		}

		key := IgnoreKey{Number: number, Hash: hash}

		s.mu.Lock()
		if _, exists := s.ignored[key]; exists {
			s.mu.Unlock()
			return fmt.Errorf("blk[%d] hash[%s]: %w", number, hash, ErrAlreadyIgnored)
		}
		s.ignored[key] = struct{}{}
		s.mu.Unlock()

		chain, ignored := s.snapshot()
		sheet, err := s.refold(chain, ignored)
		if err != nil {

			// Roll the tombstone back, the fold must stay consistent
			// with the chain the callers observe.
			s.mu.Lock()
			delete(s.ignored, key)
			s.mu.Unlock()
			return err
		}

		s.balances.Replace(sheet)
		s.notify("%s: ignored blk[%d] hash[%s]", events.Recalculated, number, hash)

		return nil
	})
}

// Unignore removes the (number, hash) tombstone and recomputes the
// balances, restoring them bit for bit to what they were before the
// block was ignored.
func (s *State) Unignore(ctx context.Context, number uint64, hash string) error {
	return s.queue.submit(ctx, "unignore", func() error {
		key := IgnoreKey{Number: number, Hash: hash}

		s.mu.Lock()
		if _, exists := s.ignored[key]; !exists {
			s.mu.Unlock()
			return fmt.Errorf("blk[%d] hash[%s]: %w", number, hash, ErrNotIgnored)
		}
		delete(s.ignored, key)
		s.mu.Unlock()

		chain, ignored := s.snapshot()
		sheet, err := s.refold(chain, ignored)
		if err != nil {
			s.mu.Lock()
			s.ignored[key] = struct{}{}
			s.mu.Unlock()
			return err
		}

		s.balances.Replace(sheet)
		s.notify("%s: unignored blk[%d] hash[%s]", events.Recalculated, number, hash)

		return nil
	})
}

// Ignored returns the current set of tombstones.
func (s *State) Ignored() []IgnoreKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]IgnoreKey, 0, len(s.ignored))
	for key := range s.ignored {
		keys = append(keys, key)
	}
	return keys
}
