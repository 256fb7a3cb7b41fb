package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/seed"
	"github.com/coffee-matcher/matcher-engine/pkg/services"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	FixturePath string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample users, venues, time slots and preferences",
		Long: `Load sample data into an empty database.

Nothing is written when users already exist. Without --fixture the built-in
sample data set is used.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.FixturePath, "fixture", "f", "", "YAML fixture file to load instead of the built-in one")

	return cmd
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.DefaultFixture()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return seed.LoadFixture(data)
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	fixture, err := loadFixture(opts.FixturePath)
	if err != nil {
		return err
	}

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

	ctx, cleanup, err := services.NewScopeFunc(db)(cmd.Context())
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer cleanup()

	a := newApp(nil, logger)
	res, err := seed.NewSeeder(a.users, a.venues, a.slots, a.prefs, logger).Run(ctx, fixture)
	if err != nil {
		return err
	}

	if res.Skipped {
		fmt.Fprintln(cmd.OutOrStdout(), "Database already has users; nothing seeded.")
		return nil
	}
	logger.Info("Seed complete",
		zap.Int("users", res.Users),
		zap.Int("venues", res.Venues),
		zap.Int("time_slots", res.Slots),
		zap.Int("preferences", res.Preferences))
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d venues, %d time slots, %d preferences.\n",
		res.Users, res.Venues, res.Slots, res.Preferences)
	return nil
}
