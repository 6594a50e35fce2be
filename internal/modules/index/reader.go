package index

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aristath/edgardiff/internal/domain"
)

// ReadEntries parses the aggregate index at path and returns the entries whose form type
// equals formType. Any non-blank line that is not a well-formed five-field entry makes the
// whole file invalid and returns ErrCorruptIndex.
func ReadEntries(path, formType string) ([]domain.IndexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open aggregate index: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var entries []domain.IndexEntry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if entry.FormType == formType {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read aggregate index: %w", err)
	}

	return entries, nil
}

func parseLine(line string) (domain.IndexEntry, error) {
	fields := strings.Split(line, "|")
	if len(fields) != fieldCount {
		return domain.IndexEntry{}, fmt.Errorf("%d fields: %w", len(fields), ErrCorruptIndex)
	}

	cik, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return domain.IndexEntry{}, fmt.Errorf("invalid CIK %q: %w", fields[0], ErrCorruptIndex)
	}

	return domain.IndexEntry{
		CIK:         cik,
		CompanyName: strings.TrimSpace(fields[1]),
		FormType:    fields[2],
		DateFiled:   strings.TrimSpace(fields[3]),
		Path:        strings.TrimSpace(fields[4]),
	}, nil
}
