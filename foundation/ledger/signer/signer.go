// Package signer provides key based address derivation, signing and
// signature verification for the ledger. Three address schemes exist and
// all of them satisfy the same capability contract.
package signer

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/base58"
	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SinkAddress is the reserved address credited with unclaimed rewards and
// every burned base fee. It is a valid address under every scheme.
const SinkAddress = "0"

// ledgerID is an arbitrary number added to the recovery id when signing
// messages. This makes it clear a signature comes from this ledger.
// Ethereum and Bitcoin do this as well, but they use the value of 27.
const ledgerID = 31

// Scheme tags the address derivation rules applied to a public key.
type Scheme string

// Set of supported address schemes.
const (
	SchemeGeneric  Scheme = "generic"
	SchemeBitcoin  Scheme = "bitcoin"
	SchemeEthereum Scheme = "ethereum"
)

// Set of errors the signer capability can return.
var (
	ErrUnknownScheme    = errors.New("unknown address scheme")
	ErrInvalidAddress   = errors.New("address is not properly formatted")
	ErrInvalidSignature = errors.New("invalid signature")
)

// =============================================================================

// Sign uses the specified private key to sign the canonical bytes. The
// returned signature is 65 bytes in [R|S|V] format with the ledger id
// embedded into V.
func Sign(data []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(stamp(data), privateKey)
	if err != nil {
		return nil, err
	}

	// Check the public key extracted from the data and the signature
	// before handing the signature out.
	publicKey, err := crypto.SigToPub(stamp(data), sig)
	if err != nil {
		return nil, err
	}
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), stamp(data), rs) {
		return nil, ErrInvalidSignature
	}

	sig[crypto.RecoveryIDOffset] += ledgerID

	return sig, nil
}

// RecoverAddress extracts the address that signed the canonical bytes,
// derived under the specified scheme.
func RecoverAddress(data []byte, sig []byte, scheme Scheme) (string, error) {
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("wrong signature length, got %d, exp %d: %w", len(sig), crypto.SignatureLength, ErrInvalidSignature)
	}

	// Check the recovery id is either 0 or 1 once the ledger id is removed.
	v := sig[crypto.RecoveryIDOffset] - ledgerID
	if v != 0 && v != 1 {
		return "", fmt.Errorf("invalid recovery id: %w", ErrInvalidSignature)
	}

	raw := make([]byte, crypto.SignatureLength)
	copy(raw, sig)
	raw[crypto.RecoveryIDOffset] = v

	publicKey, err := crypto.SigToPub(stamp(data), raw)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", ErrInvalidSignature)
	}

	return deriveAddress(publicKey, scheme)
}

// Verify checks the signature was produced over the canonical bytes by the
// key behind the specified address. A mismatch is reported as
// ErrInvalidSignature so callers can tell it apart from a missing block.
func Verify(data []byte, sig []byte, address string, scheme Scheme) error {
	recovered, err := RecoverAddress(data, sig, scheme)
	if err != nil {
		return err
	}

	if !strings.EqualFold(recovered, address) {
		return fmt.Errorf("signer mismatch, got %s, exp %s: %w", recovered, address, ErrInvalidSignature)
	}

	return nil
}

// =============================================================================

// DeriveAddress converts raw public key material into an address under the
// specified scheme. Both compressed (33 byte) and uncompressed (65 byte)
// keys are accepted.
func DeriveAddress(publicKey []byte, scheme Scheme) (string, error) {
	var key *ecdsa.PublicKey
	var err error

	switch len(publicKey) {
	case 33:
		key, err = crypto.DecompressPubkey(publicKey)
	case 65:
		key, err = crypto.UnmarshalPubkey(publicKey)
	default:
		return "", fmt.Errorf("wrong public key length %d: %w", len(publicKey), ErrInvalidAddress)
	}
	if err != nil {
		return "", fmt.Errorf("parse public key: %w", err)
	}

	return deriveAddress(key, scheme)
}

// ValidateAddress checks the address is syntactically valid under the
// specified scheme. The sink address is valid under every scheme.
func ValidateAddress(address string, scheme Scheme) error {
	if address == SinkAddress {
		return nil
	}

	switch scheme {
	case SchemeGeneric:
		key, err := hex.DecodeString(address)
		if err != nil || len(key) != 33 || (key[0] != 0x02 && key[0] != 0x03) {
			return ErrInvalidAddress
		}
		return nil

	case SchemeBitcoin:
		if payload, _, err := base58.CheckDecode(address); err == nil && len(payload) == 20 {
			return nil
		}
		if _, _, err := bech32.Decode(address); err == nil {
			return nil
		}
		return ErrInvalidAddress

	case SchemeEthereum:
		if !common.IsHexAddress(address) {
			return ErrInvalidAddress
		}
		if common.HexToAddress(address).Hex() != address {
			return fmt.Errorf("checksum mismatch: %w", ErrInvalidAddress)
		}
		return nil
	}

	return ErrUnknownScheme
}

// ResolveScheme reports which scheme, if any, the address is valid under.
func ResolveScheme(address string) (Scheme, bool) {
	for _, scheme := range []Scheme{SchemeEthereum, SchemeBitcoin, SchemeGeneric} {
		if err := ValidateAddress(address, scheme); err == nil {
			return scheme, true
		}
	}
	return "", false
}

// PublicKeyHex returns the compressed public key as hex. This is the raw
// key material a content entry carries next to its scheme tag.
func PublicKeyHex(publicKey *ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.CompressPubkey(publicKey))
}

// =============================================================================

func deriveAddress(key *ecdsa.PublicKey, scheme Scheme) (string, error) {
	switch scheme {
	case SchemeGeneric:
		return hex.EncodeToString(crypto.CompressPubkey(key)), nil

	case SchemeBitcoin:
		return base58.CheckEncode(btcutil.Hash160(crypto.CompressPubkey(key)), 0x00), nil

	case SchemeEthereum:
		return crypto.PubkeyToAddress(*key).Hex(), nil
	}

	return "", ErrUnknownScheme
}

// stamp returns a hash of 32 bytes that represents the data with the
// ledger stamp embedded into the final hash. Signatures produced here are
// unique to this ledger and can't be replayed elsewhere.
func stamp(data []byte) []byte {
	hash := crypto.Keccak256(data)
	prefix := []byte("\x19Vera Signed Message:\n32")

	return crypto.Keccak256(prefix, hash)
}
