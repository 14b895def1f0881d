package commands

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/HydroBlockchain/keresverse-market/internal/artifact"
	"github.com/HydroBlockchain/keresverse-market/internal/chain"
	"github.com/HydroBlockchain/keresverse-market/internal/market"
	"github.com/HydroBlockchain/keresverse-market/internal/report"
)

func balanceCmd() *cobra.Command {
	var (
		tokenAddr string
		tokenID   uint64
	)
	cmd := &cobra.Command{
		Use:   "balance <address>...",
		Short: "Print native balances, and token balances when --token is set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs := make([]common.Address, 0, len(args))
			for _, a := range args {
				if !common.IsHexAddress(a) {
					return fmt.Errorf("%q is not an address", a)
				}
				addrs = append(addrs, common.HexToAddress(a))
			}

			client, closeClient, err := dial(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			var token *market.Token
			if tokenAddr != "" {
				if !common.IsHexAddress(tokenAddr) {
					return fmt.Errorf("--token %q is not an address", tokenAddr)
				}
				factory, err := artifact.Find(cfg.Artifacts.Dir, cfg.Artifacts.TokenContract)
				if err != nil {
					return err
				}
				token = market.NewToken(client, chain.Bind(factory.Name, common.HexToAddress(tokenAddr), factory.ABI))
			}

			printer := report.NewPrinter(cmd.OutOrStdout())
			id := new(big.Int).SetUint64(tokenID)
			for _, addr := range addrs {
				bal, err := client.Balance(cmd.Context(), addr)
				if err != nil {
					return err
				}
				printer.Balance(addr.Hex(), bal)
				if token == nil {
					continue
				}
				held, err := token.BalanceOf(cmd.Context(), addr, id)
				if err != nil {
					return err
				}
				printer.Balance(fmt.Sprintf("%s token#%d", addr.Hex(), tokenID), held)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tokenAddr, "token", "", "deployed token contract address")
	cmd.Flags().Uint64Var(&tokenID, "id", 0, "token id for --token")
	return cmd
}
