package normalize

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const documentExt = ".txt"

// Documents is the directory of normalized filing texts
type Documents struct {
	dir string
}

// NewDocuments returns a document store rooted at dir
func NewDocuments(dir string) *Documents {
	return &Documents{dir: dir}
}

// Dir returns the directory documents are written to
func (d *Documents) Dir() string {
	return d.dir
}

// Name returns the document name for a filer and accepted date: <cik>-<YYYY-MM-DD>.txt
func Name(cik int64, acceptedAt time.Time) string {
	return fmt.Sprintf("%d-%s%s", cik, acceptedAt.Format("2006-01-02"), documentExt)
}

// Write persists text as the document for (cik, acceptedAt) and returns its name
func (d *Documents) Write(cik int64, acceptedAt time.Time, text string) (string, error) {
	name := Name(cik, acceptedAt)
	if err := os.WriteFile(filepath.Join(d.dir, name), []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write document %s: %w", name, err)
	}
	return name, nil
}

// ReadLines returns the non-empty lines of a document
func (d *Documents) ReadLines(name string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(d.dir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", name, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Clear deletes every document in the directory and returns how many were removed.
// A missing directory is not an error.
func (d *Documents) Clear() (int, error) {
	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != documentExt {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to delete document %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// LoadStopWords reads one stop-word per line, lower-cased. Blank lines and lines starting
// with '#' are ignored.
func LoadStopWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stop-word list: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stop-word list: %w", err)
	}
	return words, nil
}
