// Package index downloads the quarterly EDGAR master indexes and merges the lines for the
// target form type into one local aggregate index.
package index

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aristath/edgardiff/internal/clients/edgar"
	"github.com/aristath/edgardiff/internal/domain"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
)

// ErrCorruptIndex is returned when an index data line of the target form type does not have
// exactly five pipe-delimited fields. It aborts the run.
var ErrCorruptIndex = errors.New("corrupt index line")

const (
	indexMember = "master.idx"
	headerStart = "CIK|"
	fieldCount  = 5
)

// Downloader fetches a resource from the EDGAR archive
type Downloader interface {
	Download(ctx context.Context, path string, w io.Writer) (int64, error)
}

// AcquireResult summarises one acquisition run
type AcquireResult struct {
	Periods int // periods attempted
	Missing int // periods not published (404/403)
	Failed  int // periods that failed to download or extract
	Lines   int // lines appended to the aggregate index
	// Malformed counts data lines of other form types that did not split into five fields
	Malformed int
}

// Acquirer builds the aggregate index
type Acquirer struct {
	client    Downloader
	formType  string
	indexPath string
	tempDir   string
	log       zerolog.Logger
}

// NewAcquirer creates an acquirer writing to indexPath; archives are staged in tempDir.
func NewAcquirer(client Downloader, formType, indexPath, tempDir string, log zerolog.Logger) *Acquirer {
	return &Acquirer{
		client:    client,
		formType:  formType,
		indexPath: indexPath,
		tempDir:   tempDir,
		log:       log.With().Str("component", "index_acquirer").Logger(),
	}
}

// ArchivePath returns the site-relative location of a period's compressed master index
func ArchivePath(p domain.Period) string {
	return fmt.Sprintf("/Archives/edgar/full-index/%d/QTR%d/master.zip", p.Year, p.Quarter)
}

// Acquire truncates the aggregate index and appends the matching lines of every period in
// [start, end]. Unpublished or failing periods are logged and skipped; a corrupt data line or
// a local write failure is returned.
func (a *Acquirer) Acquire(ctx context.Context, start, end domain.Period) (AcquireResult, error) {
	var result AcquireResult

	out, err := os.Create(a.indexPath)
	if err != nil {
		return result, fmt.Errorf("failed to truncate aggregate index %s: %w", a.indexPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)

	for _, period := range domain.PeriodsBetween(start, end) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Periods++

		log := a.log.With().Str("period", period.String()).Logger()
		log.Info().Msg("Retrieving master index")

		lines, err := a.appendPeriod(ctx, period, w)
		result.Lines += lines.kept
		result.Malformed += lines.malformed

		switch {
		case err == nil:
			log.Info().Int("lines", lines.kept).Int("malformed", lines.malformed).Msg("Merged master index")
		case errors.Is(err, ErrCorruptIndex):
			_ = w.Flush()
			return result, fmt.Errorf("period %s: %w", period, err)
		case errors.Is(err, errLocalWrite):
			return result, err
		case errors.Is(err, edgar.ErrNotFound):
			result.Missing++
			log.Info().Msg("Master index not published, skipping")
		case ctx.Err() != nil:
			return result, ctx.Err()
		default:
			result.Failed++
			log.Error().Err(err).Msg("Failed to retrieve master index")
		}
	}

	if err := w.Flush(); err != nil {
		return result, fmt.Errorf("failed to write aggregate index: %w", err)
	}

	a.log.Info().
		Int("periods", result.Periods).
		Int("missing", result.Missing).
		Int("failed", result.Failed).
		Int("lines", result.Lines).
		Int("malformed", result.Malformed).
		Msg("Index acquisition complete")

	return result, nil
}

var errLocalWrite = errors.New("local index write failed")

type periodLines struct {
	kept      int
	malformed int
}

// appendPeriod downloads one period's archive and appends its matching lines to w.
func (a *Acquirer) appendPeriod(ctx context.Context, period domain.Period, w *bufio.Writer) (periodLines, error) {
	tmp, err := os.CreateTemp(a.tempDir, fmt.Sprintf("%s-*.zip", period))
	if err != nil {
		return periodLines{}, fmt.Errorf("failed to stage archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := a.client.Download(ctx, ArchivePath(period), tmp)
	closeErr := tmp.Close()
	if err != nil {
		return periodLines{}, err
	}
	if closeErr != nil {
		return periodLines{}, fmt.Errorf("failed to stage archive: %w", closeErr)
	}

	f, err := os.Open(tmp.Name())
	if err != nil {
		return periodLines{}, fmt.Errorf("failed to open staged archive: %w", err)
	}
	defer f.Close()

	zr, err := zip.NewReader(f, size)
	if err != nil {
		return periodLines{}, fmt.Errorf("failed to read archive: %w", err)
	}

	for _, member := range zr.File {
		if member.Name != indexMember {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return periodLines{}, fmt.Errorf("failed to open %s: %w", indexMember, err)
		}
		defer rc.Close()
		return a.filter(rc, w)
	}

	return periodLines{}, fmt.Errorf("archive has no %s member", indexMember)
}

// filter copies every data line of the target form type from r to w. A malformed line is
// fatal only when one of its fields names the target form type; other malformed lines are
// counted and dropped.
func (a *Acquirer) filter(r io.Reader, w *bufio.Writer) (periodLines, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lines periodLines
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.Contains(line, "|") || strings.HasPrefix(line, headerStart) {
			continue
		}

		fields := strings.Split(line, "|")
		if len(fields) != fieldCount {
			if !a.mentionsFormType(fields) {
				lines.malformed++
				a.log.Debug().Int("line", lineNo).Int("fields", len(fields)).Msg("Dropping malformed index line")
				continue
			}
			return lines, fmt.Errorf("line %d has %d fields: %w", lineNo, len(fields), ErrCorruptIndex)
		}
		if fields[2] != a.formType {
			continue
		}

		if _, err := w.WriteString(line + "\n"); err != nil {
			return lines, fmt.Errorf("%w: %v", errLocalWrite, err)
		}
		lines.kept++
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("failed to read %s: %w", indexMember, err)
	}

	return lines, nil
}

func (a *Acquirer) mentionsFormType(fields []string) bool {
	for _, field := range fields {
		if field == a.formType {
			return true
		}
	}
	return false
}
