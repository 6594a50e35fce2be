package domain

// TickerMap resolves a filer's CIK to its trading symbol.
// It is built once before the fetch fan-out and never mutated afterwards, so it is safe to
// share between workers without locking.
type TickerMap struct {
	symbols map[int64]string
}

// NewTickerMap copies symbols into an immutable TickerMap.
func NewTickerMap(symbols map[int64]string) *TickerMap {
	m := make(map[int64]string, len(symbols))
	for cik, symbol := range symbols {
		m[cik] = symbol
	}
	return &TickerMap{symbols: m}
}

// Lookup returns the symbol for cik.
func (t *TickerMap) Lookup(cik int64) (string, bool) {
	if t == nil {
		return "", false
	}
	symbol, ok := t.symbols[cik]
	return symbol, ok
}

// Len returns the number of mapped filers.
func (t *TickerMap) Len() int {
	if t == nil {
		return 0
	}
	return len(t.symbols)
}
