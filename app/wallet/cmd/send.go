package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/veralabs/ledger/foundation/ledger/record"
	"github.com/veralabs/ledger/foundation/ledger/signer"
)

var (
	url         string
	to          string
	value       uint64
	tip         uint64
	maxFee      uint64
	gasLimit    uint64
	payload     string
	file        string
	beneficiary string
)

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign content and submit it for mining",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		if file == "" {
			sendWithDetails(privateKey)
			return
		}

		sendWithFile(privateKey)
	},
}

// sendWithFile reads the payload from a file before signing and sending.
func sendWithFile(privateKey *ecdsa.PrivateKey) {
	f, err := os.Open(file)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		log.Fatal(err)
	}

	payload = string(data)
	sendWithDetails(privateKey)
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) {
	key, err := hex.DecodeString(signer.PublicKeyHex(&privateKey.PublicKey))
	if err != nil {
		log.Fatal(err)
	}

	from, err := signer.DeriveAddress(key, signer.Scheme(scheme))
	if err != nil {
		log.Fatal(err)
	}

	var transfers []record.Transfer
	if to != "" {
		transfers = append(transfers, record.Transfer{
			From:   from,
			To:     to,
			Amount: new(big.Int).SetUint64(value),
		})
	}

	content, err := record.NewContent(privateKey, signer.Scheme(scheme), payload, transfers, gasLimit, maxFee, tip)
	if err != nil {
		log.Fatal(err)
	}

	body := struct {
		Content     []record.Content `json:"content"`
		Beneficiary string           `json:"beneficiary"`
	}{
		Content:     []record.Content{content},
		Beneficiary: beneficiary,
	}

	data, err := json.Marshal(body)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/content", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address receiving the transfer.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.Flags().Uint64VarP(&tip, "tip", "c", 0, "Priority fee per gas.")
	sendCmd.Flags().Uint64VarP(&maxFee, "max-fee", "m", 100, "Max fee per gas.")
	sendCmd.Flags().Uint64VarP(&gasLimit, "gas-limit", "g", 1000000, "Gas limit for the content.")
	sendCmd.Flags().StringVarP(&payload, "data", "d", "", "Payload to record.")
	sendCmd.Flags().StringVarP(&file, "file", "f", "", "File to read the payload from.")
	sendCmd.Flags().StringVarP(&beneficiary, "beneficiary", "b", "", "Address credited with the mining reward.")
}
