package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/edgardiff/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIndex(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "master.idx")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadEntries(t *testing.T) {
	path := writeIndex(t, "1234|ACME CORP|10-Q|2021-08-09|edgar/data/1234/0001234-21-000020.txt\n\n"+
		"99|OTHER|10-K|2021-08-09|edgar/data/99/x.txt\n")

	entries, err := ReadEntries(path, "10-Q")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.IndexEntry{
		CIK:         1234,
		CompanyName: "ACME CORP",
		FormType:    "10-Q",
		DateFiled:   "2021-08-09",
		Path:        "edgar/data/1234/0001234-21-000020.txt",
	}, entries[0])
}

func TestReadEntries_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"four fields", "1234|ACME CORP|10-Q|2021-08-09\n"},
		{"six fields", "1234|ACME|CORP|10-Q|2021-08-09|x.txt\n"},
		{"non-numeric cik", "abc|ACME CORP|10-Q|2021-08-09|x.txt\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadEntries(writeIndex(t, tt.content), "10-Q")
			assert.True(t, errors.Is(err, ErrCorruptIndex))
		})
	}
}

func TestReadEntries_MissingFile(t *testing.T) {
	_, err := ReadEntries(filepath.Join(t.TempDir(), "nope.idx"), "10-Q")
	assert.Error(t, err)
}
