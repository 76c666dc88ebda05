package main

import "github.com/veralabs/ledger/app/wallet/cmd"

func main() {
	cmd.Execute()
}
