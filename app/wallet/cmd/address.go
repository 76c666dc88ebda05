package cmd

import (
	"encoding/hex"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/veralabs/ledger/foundation/ledger/signer"
)

// addressCmd represents the address command.
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the wallet address under every scheme",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		key, err := hex.DecodeString(signer.PublicKeyHex(&privateKey.PublicKey))
		if err != nil {
			log.Fatal(err)
		}

		for _, s := range []signer.Scheme{signer.SchemeGeneric, signer.SchemeBitcoin, signer.SchemeEthereum} {
			address, err := signer.DeriveAddress(key, s)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("%-10s %s\n", s, address)
		}
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
}
