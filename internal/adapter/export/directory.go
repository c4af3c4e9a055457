package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/forecast"
)

// DirectoryExporter writes dataset artifacts into a local directory.
type DirectoryExporter struct {
	dir    string
	logger *slog.Logger
}

// NewDirectoryExporter creates an exporter rooted at dir.
func NewDirectoryExporter(dir string, logger *slog.Logger) *DirectoryExporter {
	return &DirectoryExporter{dir: dir, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (e *DirectoryExporter) Name() string { return "csv" }

// Load writes every artifact the dataset supports. Each file is written to a
// temporary name first and renamed into place.
func (e *DirectoryExporter) Load(ctx context.Context, ds *domain.ProcessedDataset) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, a := range Artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !a.Available(ds) {
			continue
		}
		if err := e.writeFile(a.FileName, func(w io.Writer) error { return a.Write(w, ds) }); err != nil {
			return err
		}
	}
	e.logger.Info("artifacts exported", "dir", e.dir, "records", len(ds.Records))
	return nil
}

// WriteForecast writes forecast.csv for an evaluation.
func (e *DirectoryExporter) WriteForecast(ev forecast.Evaluation) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return e.writeFile(ForecastFileName, func(w io.Writer) error { return WriteForecast(w, ev) })
}

func (e *DirectoryExporter) writeFile(name string, write func(io.Writer) error) error {
	final := filepath.Join(e.dir, name)
	tmp, err := os.CreateTemp(e.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
