package normalize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T, stopWords ...string) *Normalizer {
	t.Helper()
	return NewNormalizer("xbrli:", stopWords, NewDocuments(t.TempDir()), zerolog.Nop())
}

func TestClean_Steps(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "entities decoded and whitespace collapsed",
			raw:      "<p>R&amp;D   spending \t  grew</p>",
			expected: "R&D spending grew",
		},
		{
			name:     "namespace elements removed",
			raw:      `<div><xbrli:context id="c1">Context entity identifier</xbrli:context><p>Narrative remains</p></div>`,
			expected: "Narrative remains",
		},
		{
			name:     "fragment links removed, external links kept",
			raw:      `<p><a href="#toc">Table of Contents</a></p><p><a href="https://example.com">Investor site</a></p>`,
			expected: "Investor site",
		},
		{
			name:     "colored table removed",
			raw:      `<table><tr style="background-color:#cceeff"><td>Highlighted boilerplate text</td></tr></table><p>Kept text</p>`,
			expected: "Kept text",
		},
		{
			name:     "bgcolor on a cell counts",
			raw:      `<table><tr><td bgcolor="#ccc">Shaded words here</td></tr></table><p>Kept text</p>`,
			expected: "Kept text",
		},
		{
			name:     "numeric table removed, prose table kept",
			raw:      `<table><tr><td>Total 1,234,567 2,345,678</td></tr></table><table><tr><td>Risk factors discussion</td></tr></table>`,
			expected: "Risk factors discussion",
		},
		{
			name:     "empty table removed",
			raw:      `<table><tr><td></td></tr></table><p>Body</p>`,
			expected: "Body",
		},
		{
			name:     "inline style tags unwrapped and merged",
			raw:      `<p>The <b>company</b> <i>expects</i> <span>growth</span><img src="x.png"></p>`,
			expected: "The company expects growth",
		},
		{
			name:     "invisible elements skipped",
			raw:      `<html><head><title>Form 10-Q</title><style>p{color:red}</style></head><body><script>var x;</script><p>Visible</p></body></html>`,
			expected: "Visible",
		},
		{
			name:     "letterless tokens dropped",
			raw:      "<p>Net sales rose 12% to $4.5 million ( )</p>",
			expected: "Net sales rose to million",
		},
		{
			name:     "low letter lines dropped",
			raw:      "<div>Q2 12 34</div><div>Quarterly results</div>",
			expected: "Quarterly results",
		},
		{
			name:     "hard-wrapped paragraph is one line",
			raw:      "<p>Net sales for the quarter were\n$12.4 million, up from\n$10.1 million.</p>",
			expected: "Net sales for the quarter were million, up from million.",
		},
		{
			name:     "plain text keeps its lines",
			raw:      "First   line\n\n  Second line",
			expected: "First line\nSecond line",
		},
		{
			name:     "one line per block",
			raw:      "<div>First block</div><div>Second block</div>",
			expected: "First block\nSecond block",
		},
	}

	n := newTestNormalizer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Clean(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestClean_StopWords(t *testing.T) {
	n := newTestNormalizer(t, "the", "of", "  AND ", "")

	got, err := n.Clean("<p>The results of operations and THE outlook</p><p>Thereof theory</p>")
	require.NoError(t, err)
	assert.Equal(t, "results operations outlook\nThereof theory", got)
}

func TestClean_Idempotent(t *testing.T) {
	n := newTestNormalizer(t, "the", "a", "of")

	raw := `<html><body>
<p>The Company's   revenue increased 15% compared to the prior period.</p>
<table><tr><td>Cash</td><td>1,000</td><td>2,000</td></tr></table>
<div><b>Liquidity</b> and capital resources remain <i>adequate</i>.</div>
<p>New   risk:
supply chain disruption in Asia.</p>
<div>Q3 2021</div>
</body></html>`

	once, err := n.Clean(raw)
	require.NoError(t, err)
	require.NotEmpty(t, once)

	twice, err := n.Clean(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNormalize_WritesDocument(t *testing.T) {
	dir := t.TempDir()
	docs := NewDocuments(dir)
	n := NewNormalizer("xbrli:", nil, docs, zerolog.Nop())

	acceptedAt := time.Date(2021, 8, 6, 16, 30, 0, 0, time.UTC)
	name, err := n.Normalize("<p>Revenue increased</p><p>Costs decreased</p>", 1234, acceptedAt)
	require.NoError(t, err)
	assert.Equal(t, "1234-2021-08-06.txt", name)

	lines, err := docs.ReadLines(name)
	require.NoError(t, err)
	assert.Equal(t, []string{"Revenue increased", "Costs decreased"}, lines)
}

func TestDocuments_Clear(t *testing.T) {
	dir := t.TempDir()
	docs := NewDocuments(dir)
	for _, name := range []string{"1-2021-01-01.txt", "2-2021-01-01.txt", "keep.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	removed, err := docs.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep.csv", entries[0].Name())

	removed, err = NewDocuments(filepath.Join(dir, "missing")).Clear()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestLoadStopWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	require.NoError(t, os.WriteFile(path, []byte("# common words\nThe\n\n  of  \nAND\n"), 0644))

	words, err := LoadStopWords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "of", "and"}, words)

	_, err = LoadStopWords(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestCompileStopWords_Empty(t *testing.T) {
	assert.Nil(t, compileStopWords(nil))
	assert.Nil(t, compileStopWords([]string{" ", ""}))
	assert.True(t, strings.Contains(compileStopWords([]string{"a.b"}).String(), `a\.b`))
}
