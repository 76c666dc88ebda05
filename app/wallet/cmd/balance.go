package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/veralabs/ledger/foundation/ledger/signer"
)

// balanceCmd represents the balance command.
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		key, err := hex.DecodeString(signer.PublicKeyHex(&privateKey.PublicKey))
		if err != nil {
			log.Fatal(err)
		}

		address, err := signer.DeriveAddress(key, signer.Scheme(scheme))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("For Address:", address)

		resp, err := http.Get(fmt.Sprintf("%s/v1/balances/%s", url, address))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		var balance struct {
			Address string `json:"address"`
			Balance string `json:"balance"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&balance); err != nil {
			log.Fatal(err)
		}
		fmt.Println(balance.Balance)
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}
