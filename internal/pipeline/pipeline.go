package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/forecast"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
)

var (
	// ErrNoDataset is returned by operations that need a processed dataset
	// before the first one has been published.
	ErrNoDataset = errors.New("no dataset processed")

	// ErrEmptyTable is returned by Run when the source yielded no rows.
	ErrEmptyTable = errors.New("source returned no rows")
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// TableExtractor reads one raw table from the source.
type TableExtractor interface {
	Extract(ctx context.Context) (domain.RawTable, error)
}

// DatasetLoader delivers a processed dataset to a sink.
type DatasetLoader interface {
	Name() string
	Load(ctx context.Context, ds *domain.ProcessedDataset) error
}

// Pipeline orchestrates extract, process, and load, and holds the latest
// processed dataset for readers.
type Pipeline struct {
	extractor TableExtractor
	processor *Processor
	loaders   []DatasetLoader
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready  atomic.Bool
	latest atomic.Pointer[domain.ProcessedDataset]

	// mu serializes processing actions and guards table.
	mu    sync.Mutex
	table *domain.RawTable
}

// New creates a Pipeline with the given stages and observability.
func New(e TableExtractor, proc *Processor, logger *slog.Logger, metrics *observability.Metrics, loaders ...DatasetLoader) *Pipeline {
	return &Pipeline{
		extractor: e,
		processor: proc,
		loaders:   loaders,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a dataset has been published, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed a dataset yet")
	}
	return nil
}

// Latest returns the most recently published dataset, or nil.
func (p *Pipeline) Latest() *domain.ProcessedDataset {
	return p.latest.Load()
}

// Run performs one processing action: extract, process, load every sink,
// commit the source, and publish the result. The source is committed only
// after all loaders succeed. A batch that fails on its content is committed
// and skipped so a streaming source does not redeliver it forever.
func (p *Pipeline) Run(ctx context.Context, opts domain.Options) (*domain.ProcessedDataset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	table, err := p.extractor.Extract(ctx)
	if err != nil {
		p.metrics.DatasetsProcessed.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("extract: %w", err)
	}
	if len(table.Rows) == 0 {
		p.commit(ctx, table)
		return nil, ErrEmptyTable
	}
	p.metrics.RowsRead.Add(float64(len(table.Rows)))

	ds, err := p.processor.Process(ctx, table, opts)
	if err != nil {
		p.metrics.DatasetsProcessed.WithLabelValues("error").Inc()
		if domain.IsUserError(err) && table.Commit != nil {
			p.logger.Warn("processing failed, skipping batch",
				"error", err,
				"source", table.Source,
				"rows", len(table.Rows),
			)
			p.commit(ctx, table)
		}
		return nil, fmt.Errorf("process %s: %w", table.Source, err)
	}

	for _, l := range p.loaders {
		if err := l.Load(ctx, ds); err != nil {
			p.metrics.ExportErrors.WithLabelValues(l.Name()).Inc()
			p.metrics.DatasetsProcessed.WithLabelValues("error").Inc()
			p.logger.Error("load dataset failed", "sink", l.Name(), "error", err)
			return nil, fmt.Errorf("load %s: %w", l.Name(), err)
		}
		p.metrics.ExportsWritten.WithLabelValues(l.Name()).Inc()
	}

	if table.Commit != nil {
		if err := table.Commit(ctx); err != nil {
			p.metrics.DatasetsProcessed.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("commit %s: %w", table.Source, err)
		}
	}

	p.table = &table
	p.publish(ds, start)
	return ds, nil
}

// Reprocess re-runs processing on the last extracted table with new options
// and replaces the published dataset. Sinks are not reloaded.
func (p *Pipeline) Reprocess(ctx context.Context, opts domain.Options) (*domain.ProcessedDataset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.table == nil {
		return nil, ErrNoDataset
	}
	start := time.Now()

	ds, err := p.processor.Process(ctx, *p.table, opts)
	if err != nil {
		p.metrics.DatasetsProcessed.WithLabelValues("error").Inc()
		return nil, err
	}
	p.publish(ds, start)
	return ds, nil
}

// Watch repeats Run against a streaming source until ctx is cancelled. Empty
// drains leave the current dataset in place; infrastructure failures back off
// exponentially.
func (p *Pipeline) Watch(ctx context.Context, opts domain.Options) error {
	p.logger.Info("pipeline watching source")

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		_, err := p.Run(ctx, opts)
		switch {
		case err == nil, errors.Is(err, ErrEmptyTable):
			backoff = initialBackoff
		case ctx.Err() != nil:
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case domain.IsUserError(err):
			backoff = initialBackoff
		default:
			p.logger.Error("processing action failed", "error", err, "backoff", backoff)
			if !retry.SleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
		}
	}
}

// Forecast fits and evaluates a model on the latest dataset's water series.
func (p *Pipeline) Forecast(ctx context.Context, opts forecast.Options) (forecast.Evaluation, error) {
	ds := p.Latest()
	if ds == nil {
		return forecast.Evaluation{}, ErrNoDataset
	}

	start := time.Now()
	ts, vs := ds.WaterSeries()
	ev, err := forecast.Run(ctx, ts, vs, opts)
	p.metrics.ForecastFitDuration.Observe(time.Since(start).Seconds())
	p.metrics.ForecastFits.WithLabelValues(forecastOutcome(err)).Inc()
	if err != nil {
		return forecast.Evaluation{}, err
	}

	p.logger.Info("forecast evaluated",
		"model", ev.Model,
		"train_months", ev.TrainMonths,
		"test_months", ev.TestMonths,
		"mae", ev.MAE,
		"mse", ev.MSE,
		"aic", ev.AIC,
	)
	return ev, nil
}

func (p *Pipeline) publish(ds *domain.ProcessedDataset, start time.Time) {
	p.latest.Store(ds)
	p.ready.Store(true)

	p.metrics.DatasetsProcessed.WithLabelValues("success").Inc()
	p.metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	p.metrics.DatasetLoaded.Set(1)
	p.metrics.RowsDropped.Add(float64(ds.DroppedRows))
	p.metrics.RecordsProcessed.Add(float64(len(ds.Records)))
	p.metrics.FloodsDetected.Add(float64(ds.FloodCount()))
	p.metrics.OutliersDetected.Add(float64(ds.OutlierCount()))

	p.logger.Info("dataset published",
		"rows_read", ds.RowsRead,
		"rows_dropped", ds.DroppedRows,
		"records", len(ds.Records),
		"floods", ds.FloodCount(),
		"years", len(ds.FloodsPerYear),
	)
}

// commit acknowledges the source if a commit function is available.
func (p *Pipeline) commit(ctx context.Context, table domain.RawTable) {
	if table.Commit == nil {
		return
	}
	if err := table.Commit(ctx); err != nil {
		p.logger.Warn("commit source failed", "error", err, "source", table.Source)
	}
}

func forecastOutcome(err error) string {
	var ie *domain.InsufficientDataError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.As(err, &ie):
		return "insufficient"
	case errors.Is(err, domain.ErrInvalidOptions):
		return "invalid"
	default:
		return "error"
	}
}
