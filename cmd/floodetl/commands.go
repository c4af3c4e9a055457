package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/flood-data-etl/internal/adapter/http"
)

type processCmd struct {
	SourceFlags
	OptionFlags
}

func (c *processCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := a.build(c.SourceFlags)
	if err != nil {
		return err
	}
	defer w.close(a.logger)

	ds, err := w.pipeline.Run(ctx, c.options())
	if err != nil {
		return wrapCommand("process", err)
	}
	logDataset(a.logger, ds)
	return nil
}

type forecastCmd struct {
	SourceFlags
	OptionFlags
	ForecastFlags
}

func (c *forecastCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := c.ForecastFlags.options()
	if err != nil {
		return err
	}
	w, err := a.build(c.SourceFlags)
	if err != nil {
		return err
	}
	defer w.close(a.logger)

	ds, err := w.pipeline.Run(ctx, c.OptionFlags.options())
	if err != nil {
		return wrapCommand("process", err)
	}
	logDataset(a.logger, ds)

	ev, err := w.pipeline.Forecast(ctx, opts)
	if err != nil {
		return wrapCommand("forecast", err)
	}
	if err := w.exporter.WriteForecast(ev); err != nil {
		return wrapCommand("write forecast", err)
	}
	a.logger.Info("forecast written",
		"model", ev.Model,
		"train_months", ev.TrainMonths,
		"test_months", ev.TestMonths,
		"mae", ev.MAE,
		"mse", ev.MSE,
		"aic", ev.AIC,
	)
	return nil
}

type serveCmd struct {
	SourceFlags
	OptionFlags
}

func (c *serveCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := a.build(c.SourceFlags)
	if err != nil {
		return err
	}
	defer w.close(a.logger)

	opts := c.options()
	if c.FromKafka {
		go func() {
			if err := w.pipeline.Watch(ctx, opts); err != nil {
				a.logger.Error("pipeline watch error", "error", err)
			}
		}()
	} else {
		ds, err := w.pipeline.Run(ctx, opts)
		if err != nil {
			return wrapCommand("process", err)
		}
		logDataset(a.logger, ds)
	}

	srv := httpadapter.NewServer(a.cfg.HTTPAddr, w.pipeline, a.logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}
