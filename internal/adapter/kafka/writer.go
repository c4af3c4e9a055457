package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-data-etl/internal/config"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

// Message kinds carried in the "kind" header.
const (
	KindRecord  = "record"
	KindSummary = "summary"
)

// Writer publishes processed datasets to a Kafka topic.
// It implements pipeline.DatasetLoader.
type Writer struct {
	writer     *kafkago.Writer
	maxElapsed time.Duration
	logger     *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{writer: w, maxElapsed: cfg.PublishMaxElapsed, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// RecordMessage is the payload of one processed record.
type RecordMessage struct {
	Timestamp time.Time          `json:"timestamp"`
	Year      int                `json:"year"`
	Water     float64            `json:"water_level"`
	ZScore    float64            `json:"zscore_water"`
	IsOutlier bool               `json:"is_outlier_water"`
	IsFlood   bool               `json:"is_flood"`
	Area      string             `json:"area,omitempty"`
	Damage    map[string]float64 `json:"damage,omitempty"`
}

// Load publishes every record followed by one summary message. Failed
// messages are retried with exponential backoff until PUBLISH_MAX_ELAPSED;
// messages the broker already accepted are not resent.
func (w *Writer) Load(ctx context.Context, ds *domain.ProcessedDataset) error {
	msgs, err := serializeDataset(ds)
	if err != nil {
		return err
	}

	pending := msgs
	operation := func() error {
		err := w.writer.WriteMessages(ctx, pending...)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		pending = retainFailed(pending, err)
		w.logger.Warn("publish failed, retrying", "error", err, "pending", len(pending))
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = w.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("publish dataset: %w", err)
	}
	w.logger.Info("dataset published to kafka", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

// Close flushes and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// retainFailed keeps only the messages a partial write rejected.
func retainFailed(msgs []kafkago.Message, err error) []kafkago.Message {
	var werrs kafkago.WriteErrors
	if !errors.As(err, &werrs) || len(werrs) != len(msgs) {
		return msgs
	}
	failed := make([]kafkago.Message, 0, werrs.Count())
	for i, e := range werrs {
		if e != nil {
			failed = append(failed, msgs[i])
		}
	}
	return failed
}

func serializeDataset(ds *domain.ProcessedDataset) ([]kafkago.Message, error) {
	processedAt := []byte(ds.ProcessedAt.Format(time.RFC3339))
	msgs := make([]kafkago.Message, 0, len(ds.Records)+1)
	for i := range ds.Records {
		msg, err := serializeRecord(ds.Records[i], ds.Schema.DamageCols)
		if err != nil {
			return nil, err
		}
		msg.Headers = append(msg.Headers, kafkago.Header{Key: "processed_at", Value: processedAt})
		msgs = append(msgs, msg)
	}

	summary, err := serializeSummary(ds)
	if err != nil {
		return nil, err
	}
	summary.Headers = append(summary.Headers, kafkago.Header{Key: "processed_at", Value: processedAt})
	return append(msgs, summary), nil
}

// serializeRecord marshals a record keyed by its year, so one year's records
// stay ordered within a partition.
func serializeRecord(r domain.Record, damageCols []string) (kafkago.Message, error) {
	payload := RecordMessage{
		Timestamp: r.Timestamp,
		Year:      r.Year,
		Water:     r.Water,
		ZScore:    r.ZScore,
		IsOutlier: r.IsOutlier,
		IsFlood:   r.IsFlood,
		Area:      r.Area,
	}
	if len(r.Damage) > 0 {
		payload.Damage = make(map[string]float64, len(damageCols))
		for i, c := range damageCols {
			if i < len(r.Damage) {
				payload.Damage[c] = r.Damage[i]
			}
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(r.Year)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(KindRecord)},
		},
	}, nil
}

func serializeSummary(ds *domain.ProcessedDataset) (kafkago.Message, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(KindSummary),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(KindSummary)},
		},
	}, nil
}
