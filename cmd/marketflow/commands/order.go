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

func orderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order <marketplace> [id]",
		Short: "Print an order held by a deployed marketplace",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("%q is not an address", args[0])
			}
			id := new(big.Int).SetUint64(cfg.Order.ID)
			if len(args) == 2 {
				if _, ok := id.SetString(args[1], 10); !ok || id.Sign() < 0 {
					return fmt.Errorf("%q is not an order id", args[1])
				}
			}

			factory, err := artifact.Find(cfg.Artifacts.Dir, cfg.Artifacts.MarketplaceContract)
			if err != nil {
				return err
			}
			client, closeClient, err := dial(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			mkt := market.NewMarketplace(client, chain.Bind(factory.Name, common.HexToAddress(args[0]), factory.ABI))
			order, err := mkt.CheckOrder(cmd.Context(), id)
			if err != nil {
				return err
			}
			report.NewPrinter(cmd.OutOrStdout()).Value("order", order)
			return nil
		},
	}
}
