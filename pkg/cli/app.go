package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/config"
	"github.com/coffee-matcher/matcher-engine/pkg/database"
	"github.com/coffee-matcher/matcher-engine/pkg/metrics"
	"github.com/coffee-matcher/matcher-engine/pkg/repositories"
	"github.com/coffee-matcher/matcher-engine/pkg/services"
)

// app is the service graph shared by serve and seed.
type app struct {
	users   services.UserService
	venues  services.VenueService
	slots   services.TimeSlotService
	prefs   services.PreferenceService
	matches services.MatchService
	queries services.QueryService
}

func newApp(m *metrics.Metrics, logger *zap.Logger) *app {
	userRepo := repositories.NewUserRepository()
	venueRepo := repositories.NewVenueRepository()
	slotRepo := repositories.NewTimeSlotRepository()
	prefRepo := repositories.NewPreferenceRepository()
	matchRepo := repositories.NewMatchRequestRepository()

	runInTx := services.NewTxRunner(logger)
	allocator := services.NewSlotAllocator(slotRepo, m, logger)

	return &app{
		users:   services.NewUserService(userRepo, runInTx, logger),
		venues:  services.NewVenueService(venueRepo, userRepo, runInTx, logger),
		slots:   services.NewTimeSlotService(slotRepo, userRepo, matchRepo, allocator, runInTx, logger),
		prefs:   services.NewPreferenceService(prefRepo, userRepo, runInTx, logger),
		matches: services.NewMatchService(matchRepo, userRepo, venueRepo, slotRepo, allocator, runInTx, m, logger),
		queries: services.NewQueryService(matchRepo, userRepo, venueRepo, slotRepo, allocator, logger),
	}
}

// connect opens the connection pool described by cfg.
func connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Database))
	return db, nil
}
