package state

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/veralabs/ledger/foundation/events"
	"github.com/veralabs/ledger/foundation/ledger/accounting"
	"github.com/veralabs/ledger/foundation/ledger/codec"
	"github.com/veralabs/ledger/foundation/ledger/record"
	"github.com/veralabs/ledger/foundation/ledger/signer"
)

// Set of errors the mutating operations can return.
var (
	ErrChainInitialized = errors.New("chain is already initialized")
	ErrNotInitialized   = errors.New("chain is not initialized")
	ErrNoContent        = errors.New("at least one content entry is required")
	ErrGasLimit         = errors.New("estimated gas exceeds the gas limit")
	ErrPayloadTooLarge  = errors.New("payload exceeds the configured maximum")
	ErrBlockTooLarge    = errors.New("block exceeds the configured maximum")
)

// InitGenesis creates the genesis block. It must be the first mutation of
// every chain and fails once a chain exists.
func (s *State) InitGenesis(ctx context.Context) (record.Block, error) {
	var block record.Block

	err := s.queue.submit(ctx, "genesis", func() error {
		if s.chainLength() > 0 {
			return ErrChainInitialized
		}

		block = record.Genesis()

		s.mu.Lock()
		s.chain = append(s.chain, block)
		s.balances.Reset(s.genesis.Balances)
		s.mu.Unlock()

		s.notify("%s: hash[%s]", events.Initialized, block.Hash())
		s.notify("%s: seeded %d addresses", events.BalanceStarted, len(s.genesis.Balances))

		return nil
	})

	return block, err
}

// AssembleContent validates the pieces of a content entry, estimates its
// gas use and returns the signed entry. No state is touched; the entry is
// only usable once it lands in a block.
func (s *State) AssembleContent(ctx context.Context, privateKey *ecdsa.PrivateKey, scheme signer.Scheme, payload string, transfers []record.Transfer, gasLimit uint64, maxFeePerGas uint64, maxPriorityFeePerGas uint64) (record.Content, error) {
	var content record.Content

	err := s.queue.submit(ctx, "assemble-content", func() error {
		if max := s.genesis.MaxPayloadBytes; max > 0 && len(payload) > max {
			return fmt.Errorf("payload is %d bytes, max %d: %w", len(payload), max, ErrPayloadTooLarge)
		}

		for i, transfer := range transfers {
			if _, ok := signer.ResolveScheme(transfer.From); !ok {
				return fmt.Errorf("transfer[%d] from %q: %w", i, transfer.From, signer.ErrInvalidAddress)
			}
			if _, ok := signer.ResolveScheme(transfer.To); !ok {
				return fmt.Errorf("transfer[%d] to %q: %w", i, transfer.To, signer.ErrInvalidAddress)
			}
		}

		var err error
		content, err = record.NewContent(privateKey, scheme, payload, transfers, gasLimit, maxFeePerGas, maxPriorityFeePerGas)
		if err != nil {
			return err
		}

		if content.GasUsed+s.genesis.BaseFeePerGas > gasLimit {
			return fmt.Errorf("estimated %d plus base fee %d, limit %d: %w", content.GasUsed, s.genesis.BaseFeePerGas, gasLimit, ErrGasLimit)
		}

		return nil
	})

	return content, err
}

// AssembleBlock aggregates one or more signed content entries into the
// next block of the chain, attaching the reward from the halving schedule
// and the configured difficulty and base fee. The block still needs to be
// mined; balances are untouched.
func (s *State) AssembleBlock(ctx context.Context, content []record.Content, beneficiaryID string) (record.Block, error) {
	var block record.Block

	err := s.queue.submit(ctx, "assemble-block", func() error {
		if s.chainLength() == 0 {
			return ErrNotInitialized
		}
		if len(content) == 0 {
			return ErrNoContent
		}

		if beneficiaryID != "" && beneficiaryID != signer.SinkAddress {
			if _, ok := signer.ResolveScheme(beneficiaryID); !ok {
				return fmt.Errorf("beneficiary %q: %w", beneficiaryID, signer.ErrInvalidAddress)
			}
		}

		for i, c := range content {
			if err := c.ValidateSignature(); err != nil {
				return fmt.Errorf("content[%d]: %w", i, err)
			}
		}

		last := s.lastBlock()
		block = record.New(last.Number+1, last.Hash(), s.genesis.Difficulty, s.CurrentReward(), s.genesis.BaseFeePerGas, beneficiaryID, content)

		if max := s.genesis.MaxBlockBytes; max > 0 {
			blob, err := codec.Marshal(block)
			if err != nil {
				return err
			}
			if len(blob) > max {
				return fmt.Errorf("block is %d bytes, max %d: %w", len(blob), max, ErrBlockTooLarge)
			}
		}

		return nil
	})

	return block, err
}

// MineAndAppend mines the block, revalidates it against the tip of the
// chain, folds it into the balances and appends it. Mining holds the
// mutation queue slot, so later mutations wait, but reads keep flowing.
// Cancelling the context aborts the nonce search.
func (s *State) MineAndAppend(ctx context.Context, block record.Block) (record.Block, error) {
	err := s.queue.submit(ctx, "mine-and-append", func() error {
		if err := block.PerformPOW(ctx, s.evHandler); err != nil {
			return fmt.Errorf("mining failed: %w", err)
		}

		return s.fold(&block)
	})

	return block, err
}

// AddMinedBlock validates a block mined elsewhere, folds it into the
// balances and appends it.
func (s *State) AddMinedBlock(ctx context.Context, block record.Block) error {
	return s.queue.submit(ctx, "add-mined", func() error {
		return s.fold(&block)
	})
}

// Recalculate rebuilds the balances from scratch by re-folding the whole
// chain, skipping ignored blocks. Balances are derived state, this is
// always safe.
func (s *State) Recalculate(ctx context.Context) error {
	return s.queue.submit(ctx, "recalculate", func() error {
		chain, ignored := s.snapshot()

		sheet, err := s.refold(chain, ignored)
		if err != nil {
			return err
		}

		s.balances.Replace(sheet)
		s.notify("%s: %d blocks", events.Recalculated, len(chain))

		return nil
	})
}

// =============================================================================

// fold validates the block against the chain tip, applies it to a scratch
// copy of the balances and, only when everything passed, swaps the
// balances and appends the block. A failure part way leaves nothing
// behind.
func (s *State) fold(block *record.Block) error {
	if s.chainLength() == 0 {
		return ErrNotInitialized
	}

	last := s.lastBlock()
	_, ignored := s.snapshot()
	if err := validatePair(*block, &last, ignored); err != nil {
		return err
	}

	scratch := s.balances.Clone()
	if err := s.acct.ApplyBlock(scratch, *block); err != nil {
		return err
	}

	s.mu.Lock()
	s.chain = append(s.chain, *block)
	s.balances.Replace(scratch)
	s.mu.Unlock()

	s.notify("%s: blk[%d] hash[%s] entries[%d]", events.BlockAppended, block.Number, block.Hash(), len(block.Content))
	s.notify("%s: blk[%d]", events.BalanceUpdate, block.Number)

	return nil
}

// refold replays the accounting fold over the specified chain from the
// genesis seed, skipping ignored blocks.
func (s *State) refold(chain []record.Block, ignored map[IgnoreKey]struct{}) (*accounting.Sheet, error) {
	sheet := accounting.NewSheet(s.genesis.Balances)

	for _, block := range chain {
		if isIgnored(block, ignored) {
			continue
		}
		if err := s.acct.ApplyBlock(sheet, block); err != nil {
			return nil, fmt.Errorf("blk[%d]: %w", block.Number, err)
		}
	}

	return sheet, nil
}

func (s *State) chainLength() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.chain))
}

func (s *State) lastBlock() record.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain[len(s.chain)-1]
}

// CurrentReward returns the amount the next mined block will mint, based
// on the height of the current last block and the halving schedule.
func (s *State) CurrentReward() *big.Int {
	var height uint64
	if n := s.chainLength(); n > 0 {
		height = s.lastBlock().Number
	}

	return s.genesis.Reward(height)
}
