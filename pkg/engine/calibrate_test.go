package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopCutoffSingleTopItem(t *testing.T) {
	// ceil(0.2*5) = 1: the cutoff is the single highest value.
	th := TopCutoff([]float64{10, 20, 30, 40, 50}, 0.2)
	require.True(t, th.OK)
	assert.Equal(t, 50.0, th.Value)
	assert.Equal(t, 5, th.SampleSize)
}

func TestTopCutoffBoundaryInclusive(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3, 6, 8, 7, 10, 9}
	th := TopCutoff(values, 0.3) // ceil(3) = 3rd highest = 8
	require.True(t, th.OK)
	assert.Equal(t, 8.0, th.Value)

	atOrAbove := 0
	for _, v := range values {
		if v >= th.Value {
			atOrAbove++
		}
	}
	assert.Equal(t, 3, atOrAbove)
}

func TestTopCutoffFractionRoundsUp(t *testing.T) {
	// ceil(0.2*3) = 1 even though 0.2*3 = 0.6.
	th := TopCutoff([]float64{1, 2, 3}, 0.2)
	require.True(t, th.OK)
	assert.Equal(t, 3.0, th.Value)
}

func TestTopCutoffWholeDataset(t *testing.T) {
	th := TopCutoff([]float64{9, 3, 7}, 1.0)
	require.True(t, th.OK)
	assert.Equal(t, 3.0, th.Value)
}

func TestTopCutoffEmptyAndDegenerate(t *testing.T) {
	for name, th := range map[string]Threshold{
		"empty":         TopCutoff(nil, 0.2),
		"zero fraction": TopCutoff([]float64{1, 2}, 0),
		"over one":      TopCutoff([]float64{1, 2}, 1.5),
	} {
		assert.False(t, th.OK, name)
		assert.True(t, math.IsNaN(th.Value), name)
	}
}

func TestTopCutoffDoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	TopCutoff(values, 0.5)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestCalibrateDatasetsIndependent(t *testing.T) {
	ad := []float64{100, 200, 300, 400, 500}
	organic := []float64{10, 20, 30, 40, 50}

	pair := CalibrateDatasets(ad, organic, 0.2)
	require.True(t, pair.Ad.OK)
	require.True(t, pair.Organic.OK)
	assert.Equal(t, 500.0, pair.Ad.Value)
	assert.Equal(t, 50.0, pair.Organic.Value)
}

func TestCalibrateDatasetsOneEmptySide(t *testing.T) {
	pair := CalibrateDatasets(nil, []float64{10, 20}, 0.5)
	assert.False(t, pair.Ad.OK)
	require.True(t, pair.Organic.OK)
	assert.Equal(t, 20.0, pair.Organic.Value)
}

func TestLikesColumn(t *testing.T) {
	posts := []Post{{Likes: 1}, {Likes: 2.5}, {Likes: 0}}
	assert.Equal(t, []float64{1, 2.5, 0}, Likes(posts))
}
