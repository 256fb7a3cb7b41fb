package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/database"
)

// MigrateOptions holds flags for the migrate commands.
type MigrateOptions struct {
	*RootOptions
	Steps int
}

// NewMigrateCommand creates the migrate command and its up/down children.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:          "up",
		Short:        "Apply all pending migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, opts, true)
		},
	}

	down := &cobra.Command{
		Use:          "down",
		Short:        "Roll back applied migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, opts, false)
		},
	}
	down.Flags().IntVarP(&opts.Steps, "steps", "n", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

func runMigrate(cmd *cobra.Command, opts *MigrateOptions, up bool) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := connect(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if up {
		return database.RunMigrations(db.StdDB(), cfg.MigrationsPath, logger)
	}
	logger.Info("Rolling back migrations", zap.Int("steps", opts.Steps))
	return database.RollbackMigrations(db.StdDB(), cfg.MigrationsPath, opts.Steps, logger)
}
