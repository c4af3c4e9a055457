// Command floodetl processes flood monitoring tables, forecasts water levels,
// and serves the dashboard API.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/flood-data-etl/internal/config"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
)

type cli struct {
	Process  processCmd  `cmd:"" help:"Process a table once and write the export artifacts."`
	Forecast forecastCmd `cmd:"" help:"Process a table, then fit and evaluate a water-level forecast."`
	Serve    serveCmd    `cmd:"" help:"Process a table (or watch Kafka) and serve the dashboard API."`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("floodetl"),
		kong.Description("Flood monitoring analytics: cleaning, flood detection, aggregation, forecasting."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
	}

	if err := kctx.Run(a); err != nil {
		logger.Error("command failed", "command", kctx.Command(), "error", err)
		os.Exit(1)
	}
}
