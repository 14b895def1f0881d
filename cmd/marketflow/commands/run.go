package commands

import (
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HydroBlockchain/keresverse-market/internal/config"
	"github.com/HydroBlockchain/keresverse-market/internal/flow"
	"github.com/HydroBlockchain/keresverse-market/internal/metrics"
	"github.com/HydroBlockchain/keresverse-market/internal/report"
	"github.com/HydroBlockchain/keresverse-market/internal/risk"
	"github.com/HydroBlockchain/keresverse-market/internal/wallet"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Deploy both contracts, list an order, fulfill it, and print balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := flow.SettingsFromConfig(cfg)
			if err != nil {
				return err
			}

			if cfg.App.MetricsAddr != "" {
				srv := metrics.Serve(cfg.App.MetricsAddr)
				defer srv.Close()
				log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
			}

			ctx, cancel := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			owner, buyer, err := wallet.LoadPair(cfg.Wallet.OwnerKeyEnv, cfg.Wallet.BuyerKeyEnv)
			if err != nil {
				return err
			}

			client, closeClient, err := dial(ctx)
			if err != nil {
				return err
			}
			defer closeClient()

			opts := []flow.Option{
				flow.WithLogger(log),
				flow.WithPrinter(report.NewPrinter(cmd.OutOrStdout())),
			}
			if cfg.Risk.MaxValue != "" {
				limit, err := config.ParseWei(cfg.Risk.MaxValue)
				if err != nil {
					return err
				}
				opts = append(opts, flow.WithLimits(risk.Limits{MaxValue: limit}))
			}
			if cfg.Report.Path != "" {
				recorder, err := report.NewJSONLRecorder(cfg.Report.Path)
				if err != nil {
					return err
				}
				defer recorder.Close()
				opts = append(opts, flow.WithRecorder(recorder))
			}

			runner := flow.NewRunner(client, flow.ArtifactDir(cfg.Artifacts.Dir), owner, buyer, settings, opts...)
			_, err = runner.Run(ctx)
			return err
		},
	}
}
