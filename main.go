package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"retailpulse/adapters/ensemble"
	"retailpulse/adapters/excel"
	"retailpulse/adapters/memstore"
	"retailpulse/adapters/mlservice"
	"retailpulse/adapters/postgres"
	"retailpulse/adapters/stores"
	"retailpulse/app"
	"retailpulse/domain/core"
	"retailpulse/internal/config"
	apperrors "retailpulse/internal/errors"
	"retailpulse/internal/logging"
	"retailpulse/internal/ops"
	"retailpulse/ports"
	"retailpulse/ui"
)

func main() {
	logging.Setup()

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	jobStore, cleanup, err := initJobStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize job store")
	}
	defer cleanup()

	loader := excel.NewLoader(excel.Config{
		SalesFile:     cfg.Data.SalesFile,
		ProductsFile:  cfg.Data.ProductsFile,
		TransfersFile: cfg.Data.TransfersFile,
	}, stores.NewResolver())

	analytics := app.NewAnalyticsService(loader)

	modelClient := mlservice.NewClient(mlservice.Config{
		BaseURL:        cfg.Forecast.MLBaseURL,
		TrainTimeout:   cfg.Forecast.TrainTimeout,
		PredictTimeout: cfg.Forecast.PredictTimeout,
	})

	forecasts := app.NewForecastService(analytics, jobStore, ensemble.NewPipeline(cfg.Forecast.StoreCount), modelClient, cfg.Forecast.HorizonMonths)
	reports := app.NewReportService(analytics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The configured exports become the initial dataset.
	if _, err := analytics.Open(ctx, core.DatasetID("default")); err != nil {
		log.Fatal().Err(apperrors.LoadFailed("configured exports", err)).Msg("failed to load dataset")
	}

	apiServer := ui.NewServer(ui.Config{
		Port:    cfg.Server.Port,
		GinMode: cfg.Server.GinMode,
	}, analytics, forecasts, reports)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return apiServer.Run(ctx) })
	if cfg.Profiling.Enabled {
		opsServer := ops.NewServer(cfg.Profiling.Port)
		g.Go(func() error { return opsServer.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shutdown complete")
}

// initJobStore picks Postgres when a database URL is configured and the
// in-memory store otherwise.
func initJobStore(cfg *config.Config) (ports.JobStore, func(), error) {
	if cfg.Database.URL == "" {
		log.Info().Msg("no DATABASE_URL set, job history is in-memory only")
		return memstore.NewJobStore(), func() {}, nil
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, nil, apperrors.DatabaseError("connect to postgres", err)
	}
	store, err := postgres.NewJobRepository(db)
	if err != nil {
		db.Close()
		return nil, nil, apperrors.DatabaseError("prepare job schema", err)
	}
	log.Info().Msg("job history persisted to postgres")
	return store, func() { db.Close() }, nil
}
