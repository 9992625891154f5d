package matrix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_SingleValue(t *testing.T) {
	for _, v := range []float32{0, 37.5, -12} {
		g, err := NewGrid(1, 1, []float32{v})
		require.NoError(t, err)

		stats := Reduce(g)
		assert.Equal(t, Stats{Min: v, Max: v, Mean: v}, stats)
	}
}

func TestReduce_EmptyGrid(t *testing.T) {
	g, err := NewGrid(0, 0, nil)
	require.NoError(t, err)

	stats := Reduce(g)
	assert.Equal(t, float32(0), stats.Mean)
	assert.True(t, math.IsInf(float64(stats.Min), 1))
	assert.True(t, math.IsInf(float64(stats.Max), -1))
}

func TestReduce_AllNegative(t *testing.T) {
	g, err := FromRows([][]float32{{-5, -2}, {-9, -4}})
	require.NoError(t, err)

	stats := Reduce(g)
	assert.Equal(t, float32(-9), stats.Min)
	assert.Equal(t, float32(-2), stats.Max)
	assert.Equal(t, float32(-5), stats.Mean)
}

func TestReduce_TwoByTwo(t *testing.T) {
	g, err := FromRows([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)

	stats := Reduce(g)
	assert.Equal(t, Stats{Min: 1, Max: 4, Mean: 2.5}, stats)
}

func TestReduce_NaNPropagates(t *testing.T) {
	g, err := NewGrid(1, 3, []float32{1, float32(math.NaN()), 3})
	require.NoError(t, err)

	stats := Reduce(g)
	assert.True(t, math.IsNaN(float64(stats.Min)))
	assert.True(t, math.IsNaN(float64(stats.Max)))
	assert.True(t, math.IsNaN(float64(stats.Mean)))
}

func TestGrid_Validation(t *testing.T) {
	_, err := NewGrid(2, 2, []float32{1, 2, 3})
	assert.Error(t, err)

	_, err = NewGrid(-1, 2, nil)
	assert.Error(t, err)

	_, err = FromRows([][]float32{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestGrid_FlattenIsCopy(t *testing.T) {
	g, err := FromRows([][]float32{{1, 2}})
	require.NoError(t, err)

	flat := g.FlattenRowMajor()
	flat[0] = 99

	assert.Equal(t, float32(1), g.At(0, 0))
}
