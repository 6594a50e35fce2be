package differences

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultThreshold)
	require.NoError(t, err)
	return engine
}

func TestEngine_Identical(t *testing.T) {
	engine := newTestEngine(t)
	doc := []string{
		"The Company designs and sells widgets.",
		"Revenue increased due to strong demand.",
	}
	assert.Empty(t, engine.Diff(doc, doc))
}

func TestEngine_Disjoint(t *testing.T) {
	engine := newTestEngine(t)
	current := []string{"The Company opened a new factory in Ohio."}
	previous := []string{"Revenue declined because of unusual weather."}

	assert.Equal(t, []string{"The Company opened a new factory in Ohio."}, engine.Diff(current, previous))
}

func TestEngine_FuzzyMatchIsNotNew(t *testing.T) {
	engine := newTestEngine(t)
	previous := []string{"Revenue increased due to strong demand for our widgets."}
	current := []string{
		"Revenue increased due to strong demand for our gadgets.",
		"We were named in a lawsuit filed by a former supplier.",
	}

	assert.Equal(t, []string{"We were named in a lawsuit filed by a former supplier."}, engine.Diff(current, previous))
}

func TestEngine_EmptyPrevious(t *testing.T) {
	engine := newTestEngine(t)
	current := []string{"First report of the filer."}

	assert.Equal(t, current, engine.Diff(current, nil))
	assert.Empty(t, engine.Diff(nil, current))
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected int
	}{
		{"case and punctuation ignored", "Hello world", "hello, world!", 100},
		{"one substitution", "abc", "abd", 67},
		{"disjoint", "abc", "xyz", 0},
		{"disjoint words", "Big.", "Sun!", 0},
		{"changed words", "Revenue increased due to higher demand in Europe.", "Revenue decreased due to lower demand in Asia.", 77},
		{"empty side", "", "abc", 0},
		{"punctuation only", "...", "abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Score(tt.a, tt.b))
		})
	}
}

func TestEngine_ChangedSentenceIsNew(t *testing.T) {
	engine := newTestEngine(t)
	current := []string{"Revenue increased due to higher demand in Europe."}
	previous := []string{"Revenue decreased due to lower demand in Asia."}

	assert.Equal(t, current, engine.Diff(current, previous))
}

func TestCommonSubsequence(t *testing.T) {
	assert.Equal(t, 2, commonSubsequence([]rune("abc"), []rune("abd")))
	assert.Equal(t, 0, commonSubsequence([]rune("abc"), []rune("xyz")))
	assert.Equal(t, 4, commonSubsequence([]rune("a1b2c3d"), []rune("abcd")))
}

func TestProcessString(t *testing.T) {
	assert.Equal(t, "net sales 2021 up 5", processString("  Net sales (2021): up 5%.  "))
	assert.Equal(t, "", processString("--"))
}
