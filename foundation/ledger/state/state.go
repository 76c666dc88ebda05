// Package state is the core API for the ledger and implements all the
// business rules and processing. It owns the ordered block sequence, the
// balance sheet, the ignored block set and the mutation queue that keeps
// them consistent under concurrent requests.
package state

import (
	"sync"

	"github.com/veralabs/ledger/foundation/events"
	"github.com/veralabs/ledger/foundation/ledger/accounting"
	"github.com/veralabs/ledger/foundation/ledger/genesis"
	"github.com/veralabs/ledger/foundation/ledger/record"
)

// EventHandler defines a function that is called when events occur in the
// processing of blocks and balances.
type EventHandler func(v string, args ...any)

// IgnoreKey identifies a block excluded from validation and balance
// folding without being removed from the stored sequence.
type IgnoreKey struct {
	Number uint64
	Hash   string
}

// =============================================================================

// Config represents the configuration required to construct a ledger.
type Config struct {
	Genesis   genesis.Genesis
	EvHandler EventHandler
	Events    *events.Events
}

// State manages the ledger: the chain of blocks, the balances derived
// from them and everything needed to mutate both safely.
type State struct {
	mu        sync.RWMutex
	chain     []record.Block
	ignored   map[IgnoreKey]struct{}
	balances  *accounting.Sheet
	genesis   genesis.Genesis
	acct      *accounting.Accountant
	queue     *mutationQueue
	evHandler EventHandler
	evts      *events.Events
}

// New constructs a ledger for the specified configuration. The chain
// starts empty, the first mutation must be Genesis.
func New(cfg Config) (*State, error) {
	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	s := State{
		ignored:   make(map[IgnoreKey]struct{}),
		balances:  accounting.NewSheet(cfg.Genesis.Balances),
		genesis:   cfg.Genesis,
		evHandler: ev,
		evts:      cfg.Events,
	}

	// Payloads surfaced by the fold go straight out as notifications.
	onPayload := func(blockNumber uint64, payload string) {
		s.notify("%s: blk[%d] payload[%s]", events.Payload, blockNumber, payload)
	}
	s.acct = accounting.New(cfg.Genesis, ev, onPayload)

	s.queue = newMutationQueue(ev)

	return &s, nil
}

// Shutdown cleanly brings the ledger down, waiting for any in-flight
// mutation to finish.
func (s *State) Shutdown() {
	s.queue.shutdown()
}

// Genesis returns the configuration the ledger runs under.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// =============================================================================

// notify sends a lifecycle milestone to the event handler and, when a bus
// was configured, to every registered observer. Never blocks, never
// affects the outcome of the mutation that produced it.
func (s *State) notify(format string, args ...any) {
	s.evHandler(format, args...)

	if s.evts != nil {
		s.evts.Sendf(format, args...)
	}
}
