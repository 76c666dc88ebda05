package record_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/veralabs/ledger/foundation/ledger/record"
	"github.com/veralabs/ledger/foundation/ledger/signer"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func noop(v string, args ...any) {}

func signedContent(t *testing.T) record.Content {
	t.Helper()

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to parse the private key: %s", err)
	}

	content, err := record.NewContent(pk, signer.SchemeEthereum, "hello", nil, 10000, 50, 5)
	if err != nil {
		t.Fatalf("Should be able to construct signed content: %s", err)
	}

	return content
}

// =============================================================================

func Test_ContentSigning(t *testing.T) {
	content := signedContent(t)

	if content.GasUsed != record.EstimateGas("hello", nil) {
		t.Fatalf("Should carry the estimated gas, got %d.", content.GasUsed)
	}

	if err := content.ValidateSignature(); err != nil {
		t.Fatalf("Should validate its own signature: %s", err)
	}

	tampered := content
	tampered.Payload = "hell0"
	if err := tampered.ValidateSignature(); !errors.Is(err, signer.ErrInvalidSignature) {
		t.Fatalf("Should reject a tampered payload, got %v.", err)
	}

	unsigned := content
	unsigned.Sig = ""
	if err := unsigned.ValidateSignature(); !errors.Is(err, record.ErrNoSignature) {
		t.Fatalf("Should reject missing signature, got %v.", err)
	}
}

func Test_EstimateGas(t *testing.T) {
	transfers := []record.Transfer{
		{From: "a", To: "b", Amount: big.NewInt(1)},
		{From: "a", To: "c", Amount: big.NewInt(2)},
	}

	if gas := record.EstimateGas("12345", transfers); gas != 5+2*64 {
		t.Fatalf("Should charge per payload byte and per transfer, got %d.", gas)
	}

	if gas := record.EstimateGas("", nil); gas != 0 {
		t.Fatalf("Should charge nothing for empty content, got %d.", gas)
	}
}

func Test_HashDeterminism(t *testing.T) {
	content := signedContent(t)
	block := record.New(1, "aaaa", 1, big.NewInt(1000), 10, "0", []record.Content{content})

	hash := block.Hash()
	if len(hash) != 64 {
		t.Fatalf("Should produce a 64 hex digit hash, got %d digits.", len(hash))
	}

	if block.Hash() != hash {
		t.Fatalf("Should hash identically on every call.")
	}

	mutated := block
	mutated.Nonce++
	if mutated.Hash() == hash {
		t.Fatalf("Should change the hash when the nonce changes.")
	}

	mutated = block
	mutated.Number++
	if mutated.Hash() == hash {
		t.Fatalf("Should change the hash when the number changes.")
	}

	mutated = block
	mutated.BaseFeePerGas++
	if mutated.Hash() == hash {
		t.Fatalf("Should change the hash when the base fee changes.")
	}
}

func Test_Genesis(t *testing.T) {
	block := record.Genesis()

	if block.Number != 0 {
		t.Fatalf("Should sit at index zero, got %d.", block.Number)
	}
	if block.PrevBlockHash != record.GenesisParent {
		t.Fatalf("Should carry the sentinel parent hash, got %q.", block.PrevBlockHash)
	}
	if block.Reward.Sign() != 0 {
		t.Fatalf("Should mint nothing, got %s.", block.Reward)
	}

	// The system entry carries the sink address and no signature.
	if err := block.ValidateSignatures(); err != nil {
		t.Fatalf("Should pass signature validation: %s", err)
	}

	if !record.IsHashSolved(0, block.Hash()) {
		t.Fatalf("Should satisfy zero difficulty without mining.")
	}
}

func Test_POW(t *testing.T) {
	content := signedContent(t)
	block := record.New(1, "aaaa", 1, big.NewInt(1000), 10, "0", []record.Content{content})

	if err := block.PerformPOWWait(noop); err != nil {
		t.Fatalf("Should be able to mine at difficulty one: %s", err)
	}

	if !record.IsHashSolved(block.Difficulty, block.Hash()) {
		t.Fatalf("Should produce a hash with the required zero prefix, got %s.", block.Hash())
	}
}

func Test_POWZeroDifficulty(t *testing.T) {
	content := signedContent(t)
	block := record.New(1, "aaaa", 0, big.NewInt(1000), 10, "0", []record.Content{content})

	if err := block.PerformPOWWait(noop); err != nil {
		t.Fatalf("Should be able to mine at difficulty zero: %s", err)
	}

	if block.Nonce != 0 {
		t.Fatalf("Should succeed on the first attempt, got nonce %d.", block.Nonce)
	}
}

func Test_POWCancel(t *testing.T) {
	content := signedContent(t)
	block := record.New(1, "aaaa", 16, big.NewInt(1000), 10, "0", []record.Content{content})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := block.PerformPOW(ctx, noop); !errors.Is(err, context.Canceled) {
		t.Fatalf("Should stop the nonce search on cancellation, got %v.", err)
	}
}

func Test_IsHashSolved(t *testing.T) {
	table := []struct {
		difficulty uint
		hash       string
		solved     bool
	}{
		{difficulty: 0, hash: "f" + str63("0"), solved: true},
		{difficulty: 1, hash: "0" + str63("f"), solved: true},
		{difficulty: 1, hash: "f" + str63("0"), solved: false},
		{difficulty: 2, hash: "00" + str63("f")[:62], solved: true},
		{difficulty: 1, hash: "0f", solved: false},
	}

	for _, tst := range table {
		if got := record.IsHashSolved(tst.difficulty, tst.hash); got != tst.solved {
			t.Fatalf("Should report %v for difficulty %d over %q.", tst.solved, tst.difficulty, tst.hash)
		}
	}
}

func str63(s string) string {
	var out string
	for i := 0; i < 63; i++ {
		out += s
	}
	return out
}
