// Package record implements the block record: the hashed, mined, signature
// gated unit the ledger chains together.
package record

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/veralabs/ledger/foundation/ledger/codec"
	"github.com/veralabs/ledger/foundation/ledger/signer"
)

// GenesisParent is the sentinel previous hash carried by the genesis block.
const GenesisParent = "0"

// transferGas is the number of gas units estimated for each transfer
// carried by a content entry.
const transferGas = 64

// ErrNoSignature is returned when a content entry that requires a
// signature doesn't carry one.
var ErrNoSignature = errors.New("content entry is not signed")

// =============================================================================

// Transfer moves an amount between two addresses.
type Transfer struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Amount *big.Int `json:"amount"`
}

// signedData is the portion of a content entry covered by its signature.
// The same canonical bytes feed the block hash.
type signedData struct {
	Payload   string     `json:"payload"`
	Transfers []Transfer `json:"transfers"`
}

// Content is one signed transaction-like unit inside a block.
type Content struct {
	PublicKey            string        `json:"public_key"` // Raw compressed public key of the signer, hex.
	Scheme               signer.Scheme `json:"scheme"`     // Address scheme the signer resolves under.
	Payload              string        `json:"payload"`
	Transfers            []Transfer    `json:"transfers"`
	GasLimit             uint64        `json:"gas_limit"`
	GasUsed              uint64        `json:"gas_used"` // Estimated from payload size and transfer count.
	MaxFeePerGas         uint64        `json:"max_fee_per_gas"`
	MaxPriorityFeePerGas uint64        `json:"max_priority_fee_per_gas"`
	Sig                  string        `json:"sig"` // Detached signature over the canonical serialization, hex.
}

// NewContent constructs a content entry, estimates its gas use and signs
// it with the specified private key.
func NewContent(privateKey *ecdsa.PrivateKey, scheme signer.Scheme, payload string, transfers []Transfer, gasLimit uint64, maxFeePerGas uint64, maxPriorityFeePerGas uint64) (Content, error) {
	content := Content{
		PublicKey:            signer.PublicKeyHex(&privateKey.PublicKey),
		Scheme:               scheme,
		Payload:              payload,
		Transfers:            transfers,
		GasLimit:             gasLimit,
		GasUsed:              EstimateGas(payload, transfers),
		MaxFeePerGas:         maxFeePerGas,
		MaxPriorityFeePerGas: maxPriorityFeePerGas,
	}

	data, err := content.SigningBytes()
	if err != nil {
		return Content{}, err
	}

	sig, err := signer.Sign(data, privateKey)
	if err != nil {
		return Content{}, err
	}
	content.Sig = hex.EncodeToString(sig)

	return content, nil
}

// EstimateGas returns the gas units charged for a payload and its
// transfers.
func EstimateGas(payload string, transfers []Transfer) uint64 {
	return uint64(len(payload)) + uint64(len(transfers))*transferGas
}

// SigningBytes returns the canonical serialization of the entry's payload
// and transfers. This is what gets signed and what feeds the block hash.
func (c Content) SigningBytes() ([]byte, error) {
	data, err := codec.Marshal(signedData{Payload: c.Payload, Transfers: c.Transfers})
	if err != nil {
		return nil, err
	}

	return []byte(data), nil
}

// FromAddress resolves the canonical address of the entry's signer from
// the raw public key material and the scheme tag.
func (c Content) FromAddress() (string, error) {
	if c.PublicKey == signer.SinkAddress {
		return signer.SinkAddress, nil
	}

	key, err := hex.DecodeString(c.PublicKey)
	if err != nil {
		return "", fmt.Errorf("parse public key: %w", signer.ErrInvalidAddress)
	}

	return signer.DeriveAddress(key, c.Scheme)
}

// ValidateSignature re-verifies the entry's signature against the same
// canonical serialization that was signed. System entries carrying the
// sink address have nothing to verify.
func (c Content) ValidateSignature() error {
	if c.PublicKey == signer.SinkAddress {
		return nil
	}

	if c.Sig == "" {
		return ErrNoSignature
	}

	data, err := c.SigningBytes()
	if err != nil {
		return err
	}

	sig, err := hex.DecodeString(c.Sig)
	if err != nil {
		return fmt.Errorf("parse signature: %w", signer.ErrInvalidSignature)
	}

	address, err := c.FromAddress()
	if err != nil {
		return err
	}

	return signer.Verify(data, sig, address, c.Scheme)
}

// =============================================================================

// Block represents a group of content entries chained together by hash.
type Block struct {
	Number        uint64    `json:"number"`
	TimeStamp     uint64    `json:"timestamp"`
	PrevBlockHash string    `json:"prev_block_hash"` // Sentinel "0" for the genesis block.
	Nonce         uint64    `json:"nonce"`
	Difficulty    uint      `json:"difficulty"` // Leading zero hex digits required of the hash.
	Reward        *big.Int  `json:"reward"`     // Amount minted to the miner.
	BeneficiaryID string    `json:"beneficiary"`
	BaseFeePerGas uint64    `json:"base_fee_per_gas"`
	Content       []Content `json:"content"`
}

// New constructs the next block in the chain around the specified content.
// The nonce is left for the POW algorithm to discover.
func New(number uint64, prevBlockHash string, difficulty uint, reward *big.Int, baseFeePerGas uint64, beneficiaryID string, content []Content) Block {
	return Block{
		Number:        number,
		TimeStamp:     uint64(time.Now().UTC().Unix()),
		PrevBlockHash: prevBlockHash,
		Difficulty:    difficulty,
		Reward:        reward,
		BeneficiaryID: beneficiaryID,
		BaseFeePerGas: baseFeePerGas,
		Content:       content,
	}
}

// Genesis constructs the block every chain starts with: index zero, the
// sentinel previous hash, zero difficulty and zero reward, recorded under
// the sink address.
func Genesis() Block {
	content := Content{
		PublicKey: signer.SinkAddress,
		Scheme:    signer.SchemeGeneric,
	}

	return Block{
		Number:        0,
		TimeStamp:     uint64(time.Now().UTC().Unix()),
		PrevBlockHash: GenesisParent,
		Reward:        big.NewInt(0),
		Content:       []Content{content},
	}
}

// Hash computes the digest over the block's canonical hashing input. The
// hash is never stored, it is always recomputed from the fields, so two
// blocks with identical fields always hash identically.
func (b Block) Hash() string {
	var sb strings.Builder

	for _, c := range b.Content {
		sb.WriteString(c.PublicKey)
		fmt.Fprintf(&sb, "%d", b.TimeStamp)
		sb.WriteString(b.PrevBlockHash)

		data, err := c.SigningBytes()
		if err != nil {

			// A content entry that can't be canonically serialized can
			// never hash into a valid block.
			sb.WriteString(err.Error())
			continue
		}
		sb.Write(data)
	}

	fmt.Fprintf(&sb, "%d%d", b.Number, b.Nonce)

	for _, c := range b.Content {
		fmt.Fprintf(&sb, "%d%d", c.GasLimit, c.GasUsed)
	}

	fmt.Fprintf(&sb, "%d", b.BaseFeePerGas)

	for _, c := range b.Content {
		fmt.Fprintf(&sb, "%d", c.MaxPriorityFeePerGas)
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

// ValidateSignatures re-verifies every content entry's signature.
func (b Block) ValidateSignatures() error {
	for i, c := range b.Content {
		if err := c.ValidateSignature(); err != nil {
			return fmt.Errorf("content[%d]: %w", i, err)
		}
	}

	return nil
}
