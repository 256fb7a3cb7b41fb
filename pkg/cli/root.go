package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/config"
	"github.com/coffee-matcher/matcher-engine/pkg/logging"
)

// RootOptions holds flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	Version    string
}

// NewRootCommand creates the coffee-matcher command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:   "coffee-matcher",
		Short: "Coffee and dinner matching service",
		Long: `coffee-matcher pairs people for coffee or dinner.

Users publish time slots, browse each other's availability, and send match
requests for a slot at a venue. Accepting a request books the slot so no
time is ever promised twice.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "",
		"path to the YAML config file (default "+config.DefaultPath+")")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// load reads configuration and builds the logger every subcommand starts from.
func (o *RootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.ConfigPath, o.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
