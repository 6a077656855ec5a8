package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantview/quantview/model"
)

func TestAlign(t *testing.T) {
	bars := barsFromCloses([]int64{100, 200, 300, 400, 500}, []float64{1, 2, 3, 4, 5})

	t.Run("preserves bar timeline", func(t *testing.T) {
		series := []model.RawPoint{
			{Time: time.Unix(300, 0).UTC(), Value: 2},
			{Time: time.Unix(400, 0).UTC(), Value: 3},
			{Time: time.Unix(500, 0).UTC(), Value: 4},
		}
		aligned := Align(series, bars)

		require.Len(t, aligned, len(bars))
		for i := range bars {
			assert.Equal(t, bars[i].Time, aligned[i].Time)
		}
		assert.False(t, aligned[0].Valid)
		assert.False(t, aligned[1].Valid)
		assert.True(t, aligned[2].Valid)
		assert.Equal(t, 2.0, aligned[2].Value)
		assert.True(t, aligned[4].Valid)
		assert.Equal(t, 4.0, aligned[4].Value)
	})

	t.Run("empty series", func(t *testing.T) {
		aligned := Align(nil, bars)
		require.Len(t, aligned, len(bars))
		for i := range aligned {
			assert.False(t, aligned[i].Valid)
		}
	})

	t.Run("series with unknown timestamps", func(t *testing.T) {
		series := []model.RawPoint{
			{Time: time.Unix(150, 0).UTC(), Value: 9},
			{Time: time.Unix(200, 0).UTC(), Value: 7},
		}
		aligned := Align(series, bars)

		require.Len(t, aligned, len(bars))
		assert.False(t, aligned[0].Valid)
		assert.True(t, aligned[1].Valid)
		assert.Equal(t, 7.0, aligned[1].Value)
	})

	t.Run("empty bars", func(t *testing.T) {
		series := []model.RawPoint{{Time: time.Unix(100, 0).UTC(), Value: 1}}
		assert.Empty(t, Align(series, nil))
	})
}

func TestValid(t *testing.T) {
	aligned := []model.AlignedPoint{
		{Time: time.Unix(100, 0), Valid: false},
		{Time: time.Unix(200, 0), Value: 1, Valid: true},
		{Time: time.Unix(300, 0), Valid: false},
		{Time: time.Unix(400, 0), Value: 0, Valid: true},
	}
	filtered := Valid(aligned)

	require.Len(t, filtered, 2)
	assert.Equal(t, int64(200), filtered[0].Time.Unix())
	// a genuine zero survives, only gaps are dropped
	assert.Equal(t, int64(400), filtered[1].Time.Unix())
	assert.Equal(t, 0.0, filtered[1].Value)
}
