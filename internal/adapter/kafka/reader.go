package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-data-etl/internal/config"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

// maxDrainMessages bounds one extracted table on a topic that never idles.
const maxDrainMessages = 100_000

// Reader consumes JSON row objects from a Kafka topic.
// It implements pipeline.TableExtractor.
type Reader struct {
	reader *kafkago.Reader
	idle   time.Duration
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, idle: cfg.KafkaReadIdleTimeout, logger: logger}
}

// Extract drains the topic until no message arrives for the idle timeout and
// returns the rows as one table. Offsets are committed only through the
// table's Commit. Messages that are not flat JSON objects are skipped but
// still committed with the batch.
func (r *Reader) Extract(ctx context.Context) (domain.RawTable, error) {
	table := domain.RawTable{Source: r.reader.Config().Topic}
	seen := make(map[string]bool)
	var msgs []kafkago.Message

	for len(msgs) < maxDrainMessages {
		fetchCtx, cancel := context.WithTimeout(ctx, r.idle)
		msg, err := r.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return domain.RawTable{}, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return domain.RawTable{}, fmt.Errorf("fetch message: %w", err)
		}
		msgs = append(msgs, msg)

		columns, row, err := decodeRow(msg.Value)
		if err != nil {
			r.logger.Warn("skipping undecodable message",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			continue
		}
		for _, c := range columns {
			if !seen[c] {
				seen[c] = true
				table.Columns = append(table.Columns, c)
			}
		}
		table.Rows = append(table.Rows, row)
	}

	if len(msgs) == 0 {
		return table, nil
	}
	for _, row := range table.Rows {
		for _, c := range table.Columns {
			if _, ok := row[c]; !ok {
				row[c] = ""
			}
		}
	}
	table.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msgs...)
	}
	r.logger.Debug("drained source topic", "messages", len(msgs), "rows", len(table.Rows))
	return table, nil
}

// Close closes the underlying consumer.
func (r *Reader) Close() error {
	return r.reader.Close()
}

// decodeRow parses a flat JSON object, keeping key order. Strings are taken
// verbatim, numbers by their literal text, booleans as "true"/"false", and
// null as blank.
func decodeRow(data []byte) ([]string, domain.RawRow, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("row is not a JSON object")
	}

	var columns []string
	row := make(domain.RawRow)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected key token %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return nil, nil, err
		}
		var cell string
		switch v := tok.(type) {
		case string:
			cell = v
		case json.Number:
			cell = v.String()
		case bool:
			cell = fmt.Sprint(v)
		case nil:
			cell = ""
		default:
			return nil, nil, fmt.Errorf("field %q: nested values are not supported", key)
		}
		if _, dup := row[key]; !dup {
			columns = append(columns, key)
		}
		row[key] = cell
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return columns, row, nil
}
