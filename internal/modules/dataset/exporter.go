package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/aristath/edgardiff/internal/domain"
	"github.com/rs/zerolog"
)

var spaceRun = regexp.MustCompile(`\s+`)

// Source lists records carrying both a difference and a follow-up price change
type Source interface {
	ListLabeled(ctx context.Context) ([]domain.FilingRecord, error)
}

// Row is one dataset example
type Row struct {
	Difference string `json:"difference"`
	Label      int    `json:"label"`
	ID         int64  `json:"id"`
}

// Result summarises an export
type Result struct {
	Path    string    `json:"path"`
	Rows    int       `json:"rows"`
	Cutoffs []float64 `json:"cutoffs"`
}

// Exporter builds and writes the dataset
type Exporter struct {
	source  Source
	buckets int
	log     zerolog.Logger
}

// NewExporter creates an exporter labeling into buckets classes
func NewExporter(source Source, buckets int, log zerolog.Logger) *Exporter {
	return &Exporter{
		source:  source,
		buckets: buckets,
		log:     log.With().Str("component", "dataset").Logger(),
	}
}

// Build labels every eligible record by the rank of its follow-up price change
func (e *Exporter) Build(ctx context.Context) ([]Row, Labeling, error) {
	records, err := e.source.ListLabeled(ctx)
	if err != nil {
		return nil, Labeling{}, fmt.Errorf("failed to list labeled records: %w", err)
	}

	var eligible []domain.FilingRecord
	for _, rec := range records {
		if rec.Difference == nil || rec.PriceChange2 == nil {
			continue
		}
		if SanitizeDifference(*rec.Difference) == "" {
			continue
		}
		eligible = append(eligible, rec)
	}

	values := make([]float64, len(eligible))
	for i, rec := range eligible {
		values[i] = *rec.PriceChange2
	}
	labeling := Label(values, e.buckets)

	rows := make([]Row, len(eligible))
	for i, rec := range eligible {
		rows[i] = Row{
			ID:         rec.ID,
			Difference: SanitizeDifference(*rec.Difference),
			Label:      labeling.Labels[i],
		}
	}
	return rows, labeling, nil
}

// Export writes the dataset to path, replacing any previous file
func (e *Exporter) Export(ctx context.Context, path string) (Result, error) {
	rows, labeling, err := e.Build(ctx)
	if err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create dataset directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dataset-*.csv")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, rows); err != nil {
		tmp.Close()
		return Result{}, err
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to close dataset file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Result{}, fmt.Errorf("failed to move dataset into place: %w", err)
	}

	e.log.Info().
		Str("path", path).
		Int("rows", len(rows)).
		Floats64("cutoffs", labeling.Cutoffs).
		Msg("Dataset exported")

	return Result{Path: path, Rows: len(rows), Cutoffs: labeling.Cutoffs}, nil
}

// WriteCSV writes rows with a difference,label header
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"difference", "label"}); err != nil {
		return fmt.Errorf("failed to write dataset header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Difference, strconv.Itoa(row.Label)}); err != nil {
			return fmt.Errorf("failed to write dataset row %d: %w", row.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush dataset: %w", err)
	}
	return nil
}

// SanitizeDifference renders a difference on one line: quotes and control characters are
// removed and whitespace runs become single spaces.
func SanitizeDifference(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\'':
			return -1
		case r == '\n' || r == '\t' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
