package ledgergrp

import (
	"github.com/veralabs/ledger/foundation/ledger/record"
)

// submitContent is what a client posts to get content mined into the
// chain. The entries arrive already signed by the client's wallet.
type submitContent struct {
	Content       []record.Content `json:"content" validate:"required,min=1"`
	BeneficiaryID string           `json:"beneficiary"`
}

// importChain carries the blobs produced by a previous export.
type importChain struct {
	Blocks []string `json:"blocks" validate:"required,min=1"`
}

// tombstone identifies the block to ignore or unignore.
type tombstone struct {
	Number uint64 `json:"number"`
	Hash   string `json:"hash" validate:"required"`
}

// actBalance is one address balance, annotated with a name when the
// address derives from a known wallet key.
type actBalance struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Balance string `json:"balance"`
}

// chainInfo summarizes the state of the chain.
type chainInfo struct {
	Length  uint64   `json:"length"`
	Tip     string   `json:"tip,omitempty"`
	Valid   bool     `json:"valid"`
	Ignored []string `json:"ignored,omitempty"`
}

// minedBlock is the response for a successful submit.
type minedBlock struct {
	Number uint64 `json:"number"`
	Hash   string `json:"hash"`
	Nonce  uint64 `json:"nonce"`
	Reward string `json:"reward"`
}
