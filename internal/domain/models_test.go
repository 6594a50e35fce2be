package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeriod_Next(t *testing.T) {
	tests := []struct {
		name     string
		period   Period
		expected Period
	}{
		{"mid year", Period{2021, 2}, Period{2021, 3}},
		{"year rollover", Period{2021, 4}, Period{2022, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.period.Next())
		})
	}
}

func TestPeriod_String(t *testing.T) {
	assert.Equal(t, "2021QTR2", Period{Year: 2021, Quarter: 2}.String())
}

func TestPeriodsBetween(t *testing.T) {
	periods := PeriodsBetween(Period{2020, 3}, Period{2021, 2})
	assert.Equal(t, []Period{{2020, 3}, {2020, 4}, {2021, 1}, {2021, 2}}, periods)

	assert.Equal(t, []Period{{2021, 1}}, PeriodsBetween(Period{2021, 1}, Period{2021, 1}))
	assert.Nil(t, PeriodsBetween(Period{2022, 1}, Period{2021, 4}))
}

func TestTickerMap(t *testing.T) {
	source := map[int64]string{1234: "acme", 99: "ZZZ"}
	tm := NewTickerMap(source)

	// Mutating the source after construction has no effect
	source[1234] = "changed"
	delete(source, 99)

	symbol, ok := tm.Lookup(1234)
	assert.True(t, ok)
	assert.Equal(t, "acme", symbol)

	_, ok = tm.Lookup(99)
	assert.True(t, ok)

	_, ok = tm.Lookup(5)
	assert.False(t, ok)
	assert.Equal(t, 2, tm.Len())

	var nilMap *TickerMap
	_, ok = nilMap.Lookup(1)
	assert.False(t, ok)
	assert.Equal(t, 0, nilMap.Len())
}
