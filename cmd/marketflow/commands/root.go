package commands

import (
	"context"
	"errors"
	"io/fs"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/HydroBlockchain/keresverse-market/internal/chain"
	"github.com/HydroBlockchain/keresverse-market/internal/config"
	"github.com/HydroBlockchain/keresverse-market/internal/util"
)

const defaultConfigPath = "internal/config/config.yaml"

var (
	configPath string
	logLevel   string

	cfg *config.Config
	log = zerolog.Nop()
)

// Execute runs the CLI; the returned error has already been logged.
func Execute() error {
	root := newRoot()
	if err := root.Execute(); err != nil {
		if cfg == nil {
			log = util.NewLoggerFor("console", "info")
		}
		log.Error().Err(err).Msg("marketflow failed")
		return err
	}
	return nil
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "marketflow",
		Short:         "Deploy the token and marketplace contracts and exercise a sale",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if logLevel != "" {
				loaded.App.LogLevel = logLevel
			}
			cfg = loaded
			log = util.NewLoggerFor(cfg.App.LogFormat, cfg.App.LogLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the YAML config")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override app.log_level")

	root.AddCommand(runCmd(), balanceCmd(), orderCmd(), configCmd())
	return root
}

// loadConfig falls back to built-in defaults when the default path is absent;
// an explicitly passed path must exist.
func loadConfig(explicit bool) (*config.Config, error) {
	loaded, err := config.Load(configPath)
	if err == nil {
		return loaded, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		def := config.Default()
		def.ApplyEnv()
		return def, nil
	}
	return nil, err
}

func dial(ctx context.Context) (*chain.Client, func(), error) {
	return chain.Dial(ctx, cfg.Chain.RPCURL,
		chain.WithLogger(log),
		chain.WithChainID(cfg.Chain.ChainID),
		chain.WithReceiptTimeout(cfg.Chain.ReceiptTimeout()),
		chain.WithPollInterval(cfg.Chain.PollInterval()),
		chain.WithGasMultiplier(cfg.Chain.GasMultiplier),
	)
}
