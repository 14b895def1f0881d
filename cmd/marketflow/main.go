package main

import (
	"os"

	"github.com/HydroBlockchain/keresverse-market/cmd/marketflow/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
