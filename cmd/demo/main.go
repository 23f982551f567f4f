// Command demo serves the API over a deterministic synthetic dataset, so
// the dashboard can be explored without the real exports.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"retailpulse/adapters/ensemble"
	"retailpulse/adapters/memstore"
	"retailpulse/adapters/mlservice"
	"retailpulse/app"
	"retailpulse/domain/core"
	"retailpulse/internal/config"
	"retailpulse/internal/logging"
	"retailpulse/internal/testkit"
	"retailpulse/ui"
)

func main() {
	logging.Setup()

	cfg, err := config.LoadDemo()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	generator := testkit.NewLedgerGenerator(testkit.DefaultLedgerConfig())
	ds := generator.Generate(core.DatasetID("demo"))

	analytics := app.NewAnalyticsService(nil)
	analytics.Register(ds)

	modelClient := mlservice.NewClient(mlservice.Config{
		BaseURL:        cfg.Forecast.MLBaseURL,
		TrainTimeout:   cfg.Forecast.TrainTimeout,
		PredictTimeout: cfg.Forecast.PredictTimeout,
	})
	forecasts := app.NewForecastService(analytics, memstore.NewJobStore(), ensemble.NewPipeline(cfg.Forecast.StoreCount), modelClient, cfg.Forecast.HorizonMonths)
	reports := app.NewReportService(analytics)

	server := ui.NewServer(ui.Config{
		Port:    cfg.Server.Port,
		GinMode: cfg.Server.GinMode,
	}, analytics, forecasts, reports)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("dataset", "demo").Int("sales", len(ds.Sales)).Msg("serving synthetic dataset")
	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
