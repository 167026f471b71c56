// Package cli wires the coldchain commands: training the vaccine and fruit
// models and serving single-shot predictions from their saved artifacts.
package cli

import (
	"github.com/coldchain-ml/coldchain/internal/config"
	"github.com/coldchain-ml/coldchain/pkg/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	logLevel   string

	cfg *config.Config
}

// NewRootCommand builds the coldchain command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "coldchain",
		Short:         "Cold-chain monitoring models: train and predict",
		Long:          "coldchain trains random-forest models on cold-chain sensor data (vaccine shipper temperature, fruit edibility) and serves predictions from the saved artifacts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			log.SetupLogger(cfg.Log.Level)
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newTrainCommand(opts))
	root.AddCommand(newPredictCommand(opts))
	return root
}
