package accounting

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/veralabs/ledger/foundation/ledger/genesis"
	"github.com/veralabs/ledger/foundation/ledger/record"
	"github.com/veralabs/ledger/foundation/ledger/signer"
)

// Set of errors the fold can return. The whole block fold aborts on the
// first violation, nothing from the block reaches the live balances.
var (
	ErrNotAuthorized       = errors.New("sender not authorized to move these funds")
	ErrInsufficientBalance = errors.New("insufficient balance for transfer")
	ErrNegativeAmount      = errors.New("transfer amount can't be negative")
)

// PayloadFunc is called for every payload surfaced by the fold when
// payload mode accounting is enabled. Purely observational.
type PayloadFunc func(blockNumber uint64, payload string)

// Accountant applies a block's content entries to a balance sheet under
// the fee, burn and reward rules.
type Accountant struct {
	genesis   genesis.Genesis
	evHandler func(v string, args ...any)
	onPayload PayloadFunc
}

// New constructs an accountant for the specified configuration.
func New(genesis genesis.Genesis, evHandler func(v string, args ...any), onPayload PayloadFunc) *Accountant {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Accountant{
		genesis:   genesis,
		evHandler: ev,
		onPayload: onPayload,
	}
}

// ApplyBlock folds one block into the sheet: content entries in list
// order, then the reward and collected fees to the miner and the burned
// fees to the sink address. Callers fold into a clone and swap it in on
// success so an error can't tear the live balances.
func (a *Accountant) ApplyBlock(sheet *Sheet, block record.Block) error {

	// The genesis block carries no economy.
	if block.Number == 0 {
		return nil
	}

	if a.genesis.PayloadMode {
		for _, content := range block.Content {
			if content.Payload != "" && a.onPayload != nil {
				a.onPayload(block.Number, content.Payload)
			}
		}
	}

	if !a.genesis.CurrencyMode {
		return nil
	}

	collected := big.NewInt(0)
	burned := big.NewInt(0)

	for i, content := range block.Content {
		if err := a.applyContent(sheet, block, content, collected, burned); err != nil {
			return fmt.Errorf("content[%d]: %w", i, err)
		}
	}

	// The reward plus the collected fees go to the miner, or to the sink
	// when no miner was specified. The burned base fees always go to the
	// sink as a separate accounting event, even when a miner exists.
	beneficiaryID := block.BeneficiaryID
	if beneficiaryID == "" {
		beneficiaryID = signer.SinkAddress
	}

	payout := new(big.Int).Add(block.Reward, collected)
	sheet.credit(beneficiaryID, payout)
	sheet.credit(signer.SinkAddress, burned)

	a.evHandler("accounting: ApplyBlock: blk[%d]: miner[%s] payout[%s] burned[%s]", block.Number, beneficiaryID, payout, burned)

	return nil
}

// applyContent processes a single content entry against the sheet,
// accumulating the block's collected and burned fees.
func (a *Accountant) applyContent(sheet *Sheet, block record.Block, content record.Content, collected *big.Int, burned *big.Int) error {
	from, err := content.FromAddress()
	if err != nil {
		return err
	}

	if err := a.validateTransfers(sheet, from, content.Transfers); err != nil {
		return err
	}

	// Ethereum style fee math: the priority fee rides on top of the base
	// fee, capped by what the sender agreed to pay per unit.
	baseFee := new(big.Int).SetUint64(block.BaseFeePerGas)
	effectiveGasPrice := new(big.Int).Add(baseFee, new(big.Int).SetUint64(content.MaxPriorityFeePerGas))
	gasPricePaid := effectiveGasPrice
	if maxFee := new(big.Int).SetUint64(content.MaxFeePerGas); effectiveGasPrice.Cmp(maxFee) > 0 {
		gasPricePaid = maxFee
	}
	totalFee := new(big.Int).Mul(new(big.Int).SetUint64(content.GasUsed), gasPricePaid)

	balance := sheet.Balance(from)

	if balance.Cmp(totalFee) >= 0 {
		if err := sheet.debit(from, totalFee); err != nil {
			return err
		}

		// The burn increment is the flat base fee, not base fee times gas
		// used. When the whole fee is below the base fee the burn is
		// capped at the fee so value stays conserved.
		if totalFee.Cmp(baseFee) >= 0 {
			collected.Add(collected, new(big.Int).Sub(totalFee, baseFee))
			burned.Add(burned, baseFee)
		} else {
			burned.Add(burned, totalFee)
		}

		for _, transfer := range content.Transfers {
			if err := sheet.debit(transfer.From, transfer.Amount); err != nil {
				return err
			}
			sheet.credit(transfer.To, transfer.Amount)
		}

		return nil
	}

	// The sender can't cover the fee: drain what exists and skip the
	// entry's transfers entirely.
	if balance.Cmp(baseFee) >= 0 {
		collected.Add(collected, new(big.Int).Sub(balance, baseFee))
		burned.Add(burned, baseFee)
	} else {
		burned.Add(burned, balance)
	}
	sheet.set(from, big.NewInt(0))

	a.evHandler("accounting: applyContent: blk[%d]: sender[%s] drained, fee was %s", block.Number, from, totalFee)

	return nil
}

// validateTransfers checks every transfer of an entry before any balance
// is touched: addresses must be syntactically valid, a non-admin sender
// may only move its own funds, and the source must cover the amount at
// validation time.
func (a *Accountant) validateTransfers(sheet *Sheet, from string, transfers []record.Transfer) error {
	for i, transfer := range transfers {
		if _, ok := signer.ResolveScheme(transfer.From); !ok {
			return fmt.Errorf("transfer[%d] from %q: %w", i, transfer.From, signer.ErrInvalidAddress)
		}
		if _, ok := signer.ResolveScheme(transfer.To); !ok {
			return fmt.Errorf("transfer[%d] to %q: %w", i, transfer.To, signer.ErrInvalidAddress)
		}

		if transfer.Amount == nil || transfer.Amount.Sign() < 0 {
			return fmt.Errorf("transfer[%d]: %w", i, ErrNegativeAmount)
		}

		if transfer.From != from && !a.genesis.IsAdmin(from) {
			return fmt.Errorf("transfer[%d], sender %s, source %s: %w", i, from, transfer.From, ErrNotAuthorized)
		}

		if sheet.Balance(transfer.From).Cmp(transfer.Amount) < 0 {
			return fmt.Errorf("transfer[%d], source %s, amount %s: %w", i, transfer.From, transfer.Amount, ErrInsufficientBalance)
		}
	}

	return nil
}
