package differences

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// DefaultThreshold is the score at or above which a sentence counts as already present
const DefaultThreshold = 85

// Engine computes the sentences a document introduced over an earlier one.
// An Engine is not safe for concurrent use; create one per worker.
type Engine struct {
	tokenizer *sentences.DefaultSentenceTokenizer
	threshold int
}

// NewEngine creates an engine with the English sentence model
func NewEngine(threshold int) (*Engine, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence tokenizer: %w", err)
	}
	return &Engine{tokenizer: tokenizer, threshold: threshold}, nil
}

// Diff returns the sentences of current that have no close match in previous, in order.
func (e *Engine) Diff(current, previous []string) []string {
	currentOnly := withoutLines(current, previous)
	previousOnly := withoutLines(previous, current)

	currentSentences := e.split(currentOnly)
	previousSentences := e.split(previousOnly)

	var added []string
	for _, sentence := range currentSentences {
		if bestScore(sentence, previousSentences) < e.threshold {
			added = append(added, sentence)
		}
	}
	return added
}

func (e *Engine) split(lines []string) []string {
	text := strings.TrimSpace(strings.Join(lines, " "))
	if text == "" {
		return nil
	}
	var out []string
	for _, s := range e.tokenizer.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// withoutLines returns the lines of a that do not appear verbatim in b
func withoutLines(a, b []string) []string {
	present := make(map[string]struct{}, len(b))
	for _, line := range b {
		present[line] = struct{}{}
	}
	var out []string
	for _, line := range a {
		if _, ok := present[line]; !ok {
			out = append(out, line)
		}
	}
	return out
}

func bestScore(sentence string, candidates []string) int {
	best := 0
	for _, c := range candidates {
		if s := Score(sentence, c); s > best {
			best = s
			if best == 100 {
				break
			}
		}
	}
	return best
}

// Score rates the similarity of two sentences from 0 to 100. Both are lowercased and runs of
// anything but letters and digits become single spaces. The result is the overlap ratio
// round(100 * 2 * lcs / (la + lb)), lcs being the longest common subsequence in runes; a
// substitution therefore costs two edits. Either side empty after processing scores 0.
func Score(a, b string) int {
	ra, rb := []rune(processString(a)), []rune(processString(b))
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	total := len(ra) + len(rb)
	return int(math.Round(100 * float64(2*commonSubsequence(ra, rb)) / float64(total)))
}

// commonSubsequence returns the length of the longest common subsequence of a and b
func commonSubsequence(a, b []rune) int {
	if len(b) > len(a) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func processString(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}
