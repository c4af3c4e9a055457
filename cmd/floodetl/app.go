package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/export"
	kafkaadapter "github.com/couchcryptid/flood-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/flood-data-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/flood-data-etl/internal/adapter/tabular"
	"github.com/couchcryptid/flood-data-etl/internal/config"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/forecast"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
	"github.com/couchcryptid/flood-data-etl/internal/pipeline"
)

// app carries the process-wide dependencies bound into every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// SourceFlags select where the raw table comes from and where artifacts go.
type SourceFlags struct {
	Input     string `short:"i" type:"existingfile" help:"CSV or XLSX file to process." env:"FLOOD_INPUT"`
	FromKafka bool   `help:"Read rows from the Kafka source topic instead of a file."`
	Out       string `short:"o" help:"Directory for export artifacts (defaults to OUTPUT_DIR)."`
}

// OptionFlags are the per-run processing overrides.
type OptionFlags struct {
	DateCol    string   `help:"Date column override." env:"FLOOD_DATE_COL"`
	WaterCol   string   `help:"Water level column override." env:"FLOOD_WATER_COL"`
	AreaCol    string   `help:"Area column override." env:"FLOOD_AREA_COL"`
	DamageCols []string `name:"damage-col" sep:"," help:"Damage columns (comma separated)." env:"FLOOD_DAMAGE_COLS"`

	Interp                   string  `default:"linear" enum:"linear,time,pad,nearest" help:"Interpolation for missing water levels (${enum})."`
	ZscoreOutlierThresh      float64 `default:"3" help:"Absolute z-score above which a reading is an outlier."`
	FloodZscoreThresh        float64 `default:"1.5" help:"Z-score above which a reading counts as a flood."`
	FloodThresholdMultiplier float64 `default:"1" help:"Flood when the level exceeds mean + multiplier*std."`
}

func (f OptionFlags) options() domain.Options {
	var damage []string
	if len(f.DamageCols) > 0 {
		damage = f.DamageCols
	}
	return domain.Options{
		DateCol:                  f.DateCol,
		WaterCol:                 f.WaterCol,
		AreaCol:                  f.AreaCol,
		DamageCols:               damage,
		InterpMethod:             domain.InterpMethod(f.Interp),
		ZScoreOutlierThresh:      domain.Float64(f.ZscoreOutlierThresh),
		FloodZScoreThresh:        domain.Float64(f.FloodZscoreThresh),
		FloodThresholdMultiplier: domain.Float64(f.FloodThresholdMultiplier),
	}
}

// ForecastFlags configure the seasonal model.
type ForecastFlags struct {
	Order         string  `default:"1,0,1" help:"Non-seasonal order p,d,q."`
	SeasonalOrder string  `default:"1,0,1,12" help:"Seasonal order P,D,Q,s."`
	TrainRatio    float64 `default:"0.8" help:"Share of months used for fitting."`
	Horizon       int     `default:"6" help:"Months to forecast past the data (0 skips the extension)."`
}

func (f ForecastFlags) options() (forecast.Options, error) {
	order, err := forecast.ParseOrder(f.Order)
	if err != nil {
		return forecast.Options{}, err
	}
	seasonal, err := forecast.ParseSeasonalOrder(f.SeasonalOrder)
	if err != nil {
		return forecast.Options{}, err
	}
	return forecast.Options{
		Order:      &order,
		Seasonal:   &seasonal,
		TrainRatio: f.TrainRatio,
		Horizon:    forecast.Int(f.Horizon),
	}, nil
}

// wiring holds a built pipeline and the resources to release with it.
type wiring struct {
	pipeline *pipeline.Pipeline
	exporter *export.DirectoryExporter
	closers  []func() error
}

func (w *wiring) close(logger *slog.Logger) {
	for _, c := range w.closers {
		if err := c(); err != nil {
			logger.Error("close error", "error", err)
		}
	}
}

// build wires the extractor, processor, and loaders for one command.
func (a *app) build(src SourceFlags) (*wiring, error) {
	w := &wiring{}

	var extractor pipeline.TableExtractor
	switch {
	case src.FromKafka:
		if !a.cfg.KafkaEnabled {
			return nil, errors.New("--from-kafka requires KAFKA_ENABLED=true")
		}
		reader := kafkaadapter.NewReader(a.cfg, a.logger)
		w.closers = append(w.closers, reader.Close)
		extractor = reader
	case src.Input != "":
		extractor = tabular.NewFileExtractor(src.Input)
	default:
		return nil, errors.New("either --input or --from-kafka is required")
	}

	var geocoder domain.Geocoder
	if a.cfg.MapboxEnabled {
		client := mapbox.NewClient(a.cfg.MapboxToken, a.cfg.MapboxTimeout, a.metrics, a.logger)
		geocoder = mapbox.NewCachedGeocoder(client, a.cfg.MapboxCacheSize, a.metrics)
		a.metrics.GeocodeEnabled.Set(1)
		a.logger.Info("mapbox geocoding enabled",
			"cache_size", a.cfg.MapboxCacheSize,
			"timeout", a.cfg.MapboxTimeout,
			"country", a.cfg.MapboxCountry,
		)
	} else {
		a.metrics.GeocodeEnabled.Set(0)
		a.logger.Info("mapbox geocoding disabled")
	}

	out := src.Out
	if out == "" {
		out = a.cfg.OutputDir
	}
	w.exporter = export.NewDirectoryExporter(out, a.logger)
	loaders := []pipeline.DatasetLoader{w.exporter}
	if a.cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(a.cfg, a.logger)
		w.closers = append(w.closers, writer.Close)
		loaders = append(loaders, writer)
	}

	proc := pipeline.NewProcessor(geocoder, a.cfg.MapboxCountry, a.logger)
	w.pipeline = pipeline.New(extractor, proc, a.logger, a.metrics, loaders...)
	return w, nil
}

func logDataset(logger *slog.Logger, ds *domain.ProcessedDataset) {
	logger.Info("dataset processed",
		"records", len(ds.Records),
		"rows_dropped", ds.DroppedRows,
		"floods", ds.FloodCount(),
		"outliers", ds.OutlierCount(),
		"water_col", ds.Schema.WaterCol,
		"date_col", ds.Schema.DateCol,
	)
}

func wrapCommand(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
