// Package normalize turns a raw filing document into flat narrative text.
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

const (
	// Tables whose flattened text is more than this fraction digits are financial statements
	maxTableDigitFraction = 0.15
	// Lines at or below this letter fraction are dropped
	minLineLetterFraction = 0.5
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	markupTag     = regexp.MustCompile(`<[A-Za-z!/?]`)

	unwrapTags = map[string]bool{
		"span": true, "font": true, "b": true, "i": true, "u": true, "strong": true, "img": true,
	}
	invisibleTags = map[string]bool{
		"script": true, "style": true, "head": true, "title": true,
	}
)

// Normalizer cleans filing markup and persists the result
type Normalizer struct {
	namespacePrefix string
	stopWords       *regexp.Regexp // nil when no stop-words are configured
	docs            *Documents
	log             zerolog.Logger
}

// NewNormalizer creates a normalizer. Elements whose tag starts with namespacePrefix are
// removed; stopWords are removed as whole words, case-insensitively.
func NewNormalizer(namespacePrefix string, stopWords []string, docs *Documents, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		namespacePrefix: strings.ToLower(namespacePrefix),
		stopWords:       compileStopWords(stopWords),
		docs:            docs,
		log:             log.With().Str("component", "normalizer").Logger(),
	}
}

func compileStopWords(words []string) *regexp.Regexp {
	seen := make(map[string]bool, len(words))
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	if len(quoted) == 0 {
		return nil
	}
	// Longest first so alternation prefers the full word
	sort.Slice(quoted, func(i, j int) bool {
		if len(quoted[i]) != len(quoted[j]) {
			return len(quoted[i]) > len(quoted[j])
		}
		return quoted[i] < quoted[j]
	})
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b[^\S\n]*`)
}

// Normalize cleans raw and writes it as the document for (cik, acceptedAt).
// It returns the document file name.
func (n *Normalizer) Normalize(raw string, cik int64, acceptedAt time.Time) (string, error) {
	text, err := n.Clean(raw)
	if err != nil {
		return "", fmt.Errorf("failed to normalize filing for CIK %d: %w", cik, err)
	}

	name, err := n.docs.Write(cik, acceptedAt, text)
	if err != nil {
		return "", err
	}

	n.log.Debug().
		Int64("cik", cik).
		Str("file", name).
		Int("raw_bytes", len(raw)).
		Int("clean_bytes", len(text)).
		Msg("Normalized filing")

	return name, nil
}

// Clean runs the normalization steps in order and returns the resulting text, one line per
// block of visible text. Clean(Clean(x)) == Clean(x).
func (n *Normalizer) Clean(raw string) (string, error) {
	doc, err := html.Parse(strings.NewReader(html.UnescapeString(collapseWhitespace(raw))))
	if err != nil {
		return "", fmt.Errorf("failed to parse markup: %w", err)
	}

	if n.namespacePrefix != "" {
		removeAll(findAll(doc, func(el *html.Node) bool {
			return strings.HasPrefix(el.Data, n.namespacePrefix)
		}))
	}
	removeAll(findAll(doc, isFragmentLink))
	removeAll(findAll(doc, func(el *html.Node) bool {
		return el.Data == "table" && hasColoredRow(el)
	}))
	removeAll(findAll(doc, func(el *html.Node) bool {
		return el.Data == "table" && digitFraction(flatText(el)) > maxTableDigitFraction
	}))
	for _, el := range findAll(doc, func(el *html.Node) bool { return unwrapTags[el.Data] }) {
		unwrap(el)
	}
	mergeText(doc)

	lines := visibleLines(doc)

	text := strings.Join(lines, "\n")
	if n.stopWords != nil {
		text = n.stopWords.ReplaceAllString(text, "")
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = dropLetterlessTokens(line)
		if line == "" || letterFraction(line) <= minLineLetterFraction {
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n"), nil
}

// collapseWhitespace replaces every whitespace run of a markup document with one space; line
// structure comes from its elements. Text without markup is already one block per line, so
// there a run containing a line break becomes one newline.
func collapseWhitespace(s string) string {
	if markupTag.MatchString(s) {
		return whitespaceRun.ReplaceAllString(s, " ")
	}
	return whitespaceRun.ReplaceAllStringFunc(s, func(run string) string {
		if strings.ContainsAny(run, "\n\r") {
			return "\n"
		}
		return " "
	})
}

// findAll returns every element node below root matching pred, in document order.
func findAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

func removeAll(nodes []*html.Node) {
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func isFragmentLink(n *html.Node) bool {
	if n.Data != "a" {
		return false
	}
	href, ok := attr(n, "href")
	return ok && strings.HasPrefix(href, "#")
}

// hasColoredRow reports whether any row of the table carries a background colour marker
// anywhere in its markup.
func hasColoredRow(table *html.Node) bool {
	for _, row := range findAll(table, func(el *html.Node) bool { return el.Data == "tr" }) {
		colored := findAll(row, func(el *html.Node) bool {
			for _, a := range el.Attr {
				if a.Key == "bgcolor" || strings.Contains(strings.ToLower(a.Val), "background-color") {
					return true
				}
			}
			return false
		})
		if len(colored) > 0 {
			return true
		}
	}
	return false
}

// flatText concatenates every text node below n
func flatText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// digitFraction returns the share of digit runes in s; empty text counts as all digits.
func digitFraction(s string) float64 {
	total, digits := 0, 0
	for _, r := range s {
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(digits) / float64(total)
}

func letterFraction(s string) float64 {
	total, letters := 0, 0
	for _, r := range s {
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}

// unwrap replaces n with its children
func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

// mergeText joins runs of adjacent text nodes into the first node of each run
func mergeText(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			for c.NextSibling != nil && c.NextSibling.Type == html.TextNode {
				next := c.NextSibling
				c.Data += next.Data
				n.RemoveChild(next)
			}
			continue
		}
		mergeText(c)
	}
}

// visibleLines extracts one trimmed line per text fragment, skipping non-rendered elements.
func visibleLines(doc *html.Node) []string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if invisibleTags[n.Data] {
				return
			}
		case html.TextNode:
			for _, line := range strings.Split(n.Data, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
			return
		case html.CommentNode, html.DoctypeNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return lines
}

// dropLetterlessTokens removes whitespace-bounded tokens without a letter and rejoins the
// rest with single spaces.
func dropLetterlessTokens(line string) string {
	fields := strings.Fields(line)
	kept := fields[:0]
	for _, f := range fields {
		if strings.IndexFunc(f, unicode.IsLetter) >= 0 {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
