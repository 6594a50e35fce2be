package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel_EqualShares(t *testing.T) {
	values := []float64{0.3, -0.1, 0.1, 0.0, 0.2, -0.2}

	labeling := Label(values, 3)
	assert.Equal(t, []int{2, 0, 1, 1, 2, 0}, labeling.Labels)

	require.Len(t, labeling.Cutoffs, 2)
	assert.GreaterOrEqual(t, labeling.Cutoffs[0], -0.1)
	assert.LessOrEqual(t, labeling.Cutoffs[0], 0.0)
	assert.GreaterOrEqual(t, labeling.Cutoffs[1], 0.1)
	assert.LessOrEqual(t, labeling.Cutoffs[1], 0.2)
}

func TestLabel_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Label(values, 3)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestLabel_Edges(t *testing.T) {
	assert.Empty(t, Label(nil, 3).Labels)
	assert.Equal(t, []int{0, 0}, Label([]float64{5, -5}, 0).Labels)
	assert.Equal(t, []int{0}, Label([]float64{1}, 3).Labels)
	assert.Equal(t, []int{0, 1, 2, 3}, Label([]float64{1, 2, 3, 4}, 4).Labels)
}

func TestLabel_TiesFollowInputOrder(t *testing.T) {
	values := []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2}, Label(values, 3).Labels)
}
