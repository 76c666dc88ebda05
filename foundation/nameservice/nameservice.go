// Package nameservice reads a directory of wallet keys and creates a name
// service lookup for the addresses they derive to.
package nameservice

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/veralabs/ledger/foundation/ledger/signer"
)

// NameService maintains a map of addresses for name lookup. A wallet key
// derives to one address per scheme and every one of them maps to the
// key file's name.
type NameService struct {
	addresses map[string]string
}

// New constructs a name service with the keys found under the root folder.
func New(root string) (*NameService, error) {
	ns := NameService{
		addresses: make(map[string]string),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		key, err := hex.DecodeString(signer.PublicKeyHex(&privateKey.PublicKey))
		if err != nil {
			return err
		}

		name := strings.TrimSuffix(path.Base(fileName), ".ecdsa")
		for _, scheme := range []signer.Scheme{signer.SchemeGeneric, signer.SchemeBitcoin, signer.SchemeEthereum} {
			address, err := signer.DeriveAddress(key, scheme)
			if err != nil {
				return err
			}
			ns.addresses[address] = name
		}

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address, or the address
// itself when no key file derives to it.
func (ns *NameService) Lookup(address string) string {
	name, exists := ns.addresses[address]
	if !exists {
		return address
	}
	return name
}

// Copy returns a copy of the map of addresses and names.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.addresses))
	for address, name := range ns.addresses {
		cpy[address] = name
	}
	return cpy
}
