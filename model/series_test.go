package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeriesLastValues(t *testing.T) {
	series := Series[float64]{1, 2, 3, 4}

	assert.Equal(t, 4, series.Length())
	assert.Equal(t, []float64{1, 2, 3, 4}, series.Values())
	assert.Equal(t, 4.0, series.Last(0))
	assert.Equal(t, 3.0, series.Last(1))
	assert.Equal(t, []float64{3, 4}, series.LastValues(2))
	assert.Equal(t, []float64{1, 2, 3, 4}, series.LastValues(10))
}

func TestSeriesCross(t *testing.T) {
	reference := Series[float64]{10, 10}

	assert.True(t, Series[float64]{9, 11}.Crossover(reference))
	assert.False(t, Series[float64]{11, 12}.Crossover(reference))
	assert.False(t, Series[float64]{9, 10}.Crossover(reference))

	assert.True(t, Series[float64]{11, 9}.Crossunder(reference))
	assert.False(t, Series[float64]{9, 8}.Crossunder(reference))

	assert.True(t, Series[float64]{9, 11}.Cross(reference))
	assert.True(t, Series[float64]{11, 9}.Cross(reference))
	assert.False(t, Series[float64]{11, 12}.Cross(reference))
}
