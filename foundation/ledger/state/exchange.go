package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/veralabs/ledger/foundation/events"
	"github.com/veralabs/ledger/foundation/ledger/codec"
	"github.com/veralabs/ledger/foundation/ledger/record"
)

// Set of errors the import operation can return. Empty or unreadable
// input and an internally inconsistent chain are different failures and
// carry different sentinels.
var (
	ErrImportEmpty   = errors.New("import input is empty or unreadable")
	ErrImportInvalid = errors.New("imported chain is internally inconsistent")
)

// Export serializes every non-ignored block to an opaque blob, one per
// block in chain order. Persistence of the blobs is the caller's problem.
func (s *State) Export() ([]string, error) {
	chain, ignored := s.snapshot()

	blobs := make([]string, 0, len(chain))
	for _, block := range chain {
		if isIgnored(block, ignored) {
			continue
		}

		blob, err := codec.Marshal(block)
		if err != nil {
			return nil, fmt.Errorf("blk[%d]: %w", block.Number, err)
		}
		blobs = append(blobs, blob)
	}

	return blobs, nil
}

// DecodeBlock decodes a single exported blob back into a block.
func (s *State) DecodeBlock(blob string) (record.Block, error) {
	var block record.Block
	if err := codec.Into(blob, codec.KindObject, &block); err != nil {
		return record.Block{}, err
	}

	return block, nil
}

// Import replaces the whole chain with the blocks decoded from the blobs,
// recomputes the balances and fully revalidates. The tombstone set is
// cleared: ignored blocks never travel through an export. A list that
// fails validation is rejected, nothing changes.
func (s *State) Import(ctx context.Context, blobs []string) error {
	return s.queue.submit(ctx, "import", func() error {
		if len(blobs) == 0 {
			return ErrImportEmpty
		}

		chain := make([]record.Block, 0, len(blobs))
		for i, blob := range blobs {
			var block record.Block
			if err := codec.Into(blob, codec.KindObject, &block); err != nil {
				return fmt.Errorf("blob[%d]: %s: %w", i, err, ErrImportEmpty)
			}
			chain = append(chain, block)
		}

		noTombstones := make(map[IgnoreKey]struct{})

		if err := validateRange(chain, noTombstones, 0, uint64(len(chain)-1)); err != nil {
			switch {
			case errors.Is(err, ErrBlockMissing):
				return fmt.Errorf("%s: %w", err, ErrImportEmpty)
			default:
				return fmt.Errorf("%s: %w", err, ErrImportInvalid)
			}
		}

		sheet, err := s.refold(chain, noTombstones)
		if err != nil {
			return fmt.Errorf("%s: %w", err, ErrImportInvalid)
		}

		s.mu.Lock()
		s.chain = chain
		s.ignored = make(map[IgnoreKey]struct{})
		s.balances.Replace(sheet)
		s.mu.Unlock()

		s.notify("%s", events.Cleared)
		s.notify("%s: %d blocks", events.Imported, len(chain))

		return nil
	})
}
