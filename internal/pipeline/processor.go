package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

// Processor turns a raw table into a processed dataset, with optional
// geocoding enrichment of the affected-area ranking.
type Processor struct {
	geocoder domain.Geocoder
	region   string
	logger   *slog.Logger
}

// NewProcessor creates a Processor. Pass a nil geocoder to disable
// geocoding enrichment.
func NewProcessor(geocoder domain.Geocoder, region string, logger *slog.Logger) *Processor {
	return &Processor{
		geocoder: geocoder,
		region:   region,
		logger:   logger,
	}
}

// Process resolves columns, normalizes dates, cleans and classifies water
// levels, then aggregates damage and yearly summaries concurrently.
func (p *Processor) Process(ctx context.Context, table domain.RawTable, opts domain.Options) (*domain.ProcessedDataset, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	prepared, err := domain.Prepare(table, opts)
	if err != nil {
		return nil, err
	}
	records := prepared.Records
	schema := prepared.Schema

	var (
		damage  domain.DamageResult
		summary domain.YearlySummary
		ranked  []domain.AreaCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		damage = domain.AggregateDamage(records, schema.DamageCols)
		return gctx.Err()
	})
	g.Go(func() error {
		summary = domain.SummarizeYears(records)
		if schema.AreaCol != "" {
			ranked = domain.RankAreas(records, domain.TopAreaLimit)
		}
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range damage.Values {
		records[i].Damage = damage.Values[i]
	}

	if len(ranked) > 0 && p.geocoder != nil {
		ranked = domain.GeocodeAreas(ctx, ranked, p.region, p.geocoder, p.logger)
	}

	columns := append([]string(nil), table.Columns...)
	if schema.DateSynthetic {
		columns = append(columns, schema.DateCol)
	}

	p.logger.Debug("dataset processed",
		"source", table.Source,
		"date_col", schema.DateCol,
		"water_col", schema.WaterCol,
		"area_col", schema.AreaCol,
		"flood_col", schema.FloodCol,
		"damage_cols", len(schema.DamageCols),
		"rows_dropped", prepared.Dropped,
	)

	return &domain.ProcessedDataset{
		Records:          records,
		Columns:          columns,
		Schema:           schema,
		FloodsPerYear:    summary.FloodsPerYear,
		AvgWaterPerYear:  summary.AvgWaterPerYear,
		DamagePerYear:    damage.PerYear,
		TopAffectedAreas: ranked,
		RowsRead:         len(table.Rows),
		DroppedRows:      prepared.Dropped,
		ProcessedAt:      domain.Now(),
	}, nil
}
