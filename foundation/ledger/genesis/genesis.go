// Package genesis maintains access to the ledger configuration: economic
// parameters, the halving schedule, the admin set and the mode flags.
package genesis

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/veralabs/ledger/business/sys/validate"
	"github.com/veralabs/ledger/foundation/ledger/signer"
)

// Genesis represents the configuration a ledger instance runs under.
type Genesis struct {
	Date            time.Time         `json:"date"`
	ChainID         uint16            `json:"chain_id" validate:"required"`
	Difficulty      uint              `json:"difficulty" validate:"lte=16"`        // Leading zero hex digits required of a mined hash.
	InitialReward   uint64            `json:"initial_reward"`                      // Reward minted for the first block after genesis.
	HalvingInterval uint64            `json:"halving_interval" validate:"gte=1"`   // Blocks between each halving of the reward.
	LastBlockReward uint64            `json:"last_block_reward"`                   // Height after which the reward is zero.
	BaseFeePerGas   uint64            `json:"base_fee_per_gas"`                    // Burned portion of the gas price, per block.
	MaxPayloadBytes int               `json:"max_payload_bytes" validate:"gte=0"`  // Zero disables the payload size guardrail.
	MaxBlockBytes   int               `json:"max_block_bytes" validate:"gte=0"`    // Zero disables the block size guardrail.
	CurrencyMode    bool              `json:"currency_mode"`                       // Fold transfers and fees into balances.
	PayloadMode     bool              `json:"payload_mode"`                        // Surface payloads as notifications.
	Admins          []string          `json:"admins"`                              // Addresses allowed to move funds of others.
	Balances        map[string]uint64 `json:"balances"`                            // Balances seeded before any block is folded.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the configuration is usable.
func (g Genesis) Validate() error {
	if err := validate.Check(g); err != nil {
		return err
	}

	for _, address := range g.Admins {
		if _, ok := signer.ResolveScheme(address); !ok {
			return fmt.Errorf("admin %q: %w", address, signer.ErrInvalidAddress)
		}
	}

	for address := range g.Balances {
		if _, ok := signer.ResolveScheme(address); !ok {
			return fmt.Errorf("balance %q: %w", address, signer.ErrInvalidAddress)
		}
	}

	return nil
}

// Reward returns the amount minted for a block mined when the chain height
// is the specified value. The reward halves every HalvingInterval blocks
// and drops to zero for any height past LastBlockReward.
func (g Genesis) Reward(height uint64) *big.Int {
	if height > g.LastBlockReward {
		return big.NewInt(0)
	}

	halvings := height / g.HalvingInterval
	if halvings > 63 {
		return big.NewInt(0)
	}

	return new(big.Int).SetUint64(g.InitialReward >> halvings)
}

// IsAdmin reports whether the address is part of the admin set.
func (g Genesis) IsAdmin(address string) bool {
	for _, admin := range g.Admins {
		if admin == address {
			return true
		}
	}
	return false
}
