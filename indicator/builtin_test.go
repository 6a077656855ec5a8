package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantview/quantview/model"
)

func barsFromCloses(times []int64, closes []float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i := range closes {
		bars[i] = model.Bar{
			Time:  time.Unix(times[i], 0).UTC(),
			Open:  closes[i],
			High:  closes[i],
			Low:   closes[i],
			Close: closes[i],
		}
	}
	return bars
}

func sequentialBars(closes []float64) []model.Bar {
	times := make([]int64, len(closes))
	for i := range closes {
		times[i] = int64(100 * (i + 1))
	}
	return barsFromCloses(times, closes)
}

func TestSMA(t *testing.T) {
	t.Run("three period over five bars", func(t *testing.T) {
		bars := barsFromCloses([]int64{100, 200, 300, 400, 500}, []float64{1, 2, 3, 4, 5})
		points := SMA(bars, 3, SourceClose)

		require.Len(t, points, 3)
		assert.Equal(t, int64(300), points[0].Time.Unix())
		assert.Equal(t, 2.0, points[0].Value)
		assert.Equal(t, int64(400), points[1].Time.Unix())
		assert.Equal(t, 3.0, points[1].Value)
		assert.Equal(t, int64(500), points[2].Time.Unix())
		assert.Equal(t, 4.0, points[2].Value)
	})

	t.Run("output length", func(t *testing.T) {
		for _, period := range []int{1, 2, 5, 10, 30} {
			bars := sequentialBars(make([]float64, 20))
			points := SMA(bars, period, SourceClose)

			expected := len(bars) - period + 1
			if expected < 0 {
				expected = 0
			}
			require.Len(t, points, expected, "period %d", period)
			if expected > 0 {
				assert.Equal(t, bars[period-1].Time, points[0].Time)
			}
		}
	})

	t.Run("insufficient data", func(t *testing.T) {
		bars := sequentialBars([]float64{1, 2})
		assert.Empty(t, SMA(bars, 3, SourceClose))
	})
}

func TestEMA(t *testing.T) {
	bars := barsFromCloses([]int64{100, 200, 300, 400}, []float64{1, 2, 3, 4})
	points := EMA(bars, 3, SourceClose)

	// seeded with the first close, emitted from index period-1
	require.Len(t, points, 2)
	assert.Equal(t, int64(300), points[0].Time.Unix())
	assert.InDelta(t, 2.25, points[0].Value, 1e-9)
	assert.Equal(t, int64(400), points[1].Time.Unix())
	assert.InDelta(t, 3.125, points[1].Value, 1e-9)
}

func TestRSI(t *testing.T) {
	t.Run("values", func(t *testing.T) {
		bars := sequentialBars([]float64{1, 2, 3, 2, 2})
		points := RSI(bars, 2)

		require.Len(t, points, 3)
		assert.Equal(t, bars[2].Time, points[0].Time)
		assert.Equal(t, 100.0, points[0].Value) // no losses yet
		assert.InDelta(t, 50.0, points[1].Value, 1e-9)
		assert.InDelta(t, 0.0, points[2].Value, 1e-9)
	})

	t.Run("bounded", func(t *testing.T) {
		closes := []float64{10, 12, 9, 15, 14, 14, 20, 3, 8, 8.5, 11, 30, 2, 2, 2, 40}
		points := RSI(sequentialBars(closes), 4)
		require.NotEmpty(t, points)
		for _, p := range points {
			assert.GreaterOrEqual(t, p.Value, 0.0)
			assert.LessOrEqual(t, p.Value, 100.0)
		}
	})

	t.Run("insufficient data", func(t *testing.T) {
		bars := sequentialBars(make([]float64, 14))
		assert.Empty(t, RSI(bars, 14))
	})

	t.Run("zero average loss", func(t *testing.T) {
		bars := sequentialBars([]float64{1, 2, 3, 4, 5})
		points := RSI(bars, 3)
		require.NotEmpty(t, points)
		for _, p := range points {
			assert.Equal(t, 100.0, p.Value)
		}
	})
}

func TestMACD(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = float64(i%7) + float64(i)/3
	}
	bars := sequentialBars(closes)

	series := MACD(bars, 12, 26, 9)
	require.Contains(t, series, "macd")
	require.Contains(t, series, "signal")
	require.Contains(t, series, "histogram")

	macd := Align(series["macd"], bars)
	signal := Align(series["signal"], bars)
	histogram := Align(series["histogram"], bars)

	require.Len(t, macd, len(bars))
	require.Len(t, signal, len(bars))
	require.Len(t, histogram, len(bars))

	// macd starts at the slow EMA warm-up, signal and histogram one signal
	// warm-up later; signal and histogram gaps are identical
	for i := range bars {
		assert.Equal(t, i >= 25, macd[i].Valid, "macd at %d", i)
		assert.Equal(t, i >= 33, signal[i].Valid, "signal at %d", i)
		assert.Equal(t, signal[i].Valid, histogram[i].Valid, "histogram at %d", i)
	}

	// histogram = macd - signal, joined by timestamp
	for i := range bars {
		if histogram[i].Valid {
			assert.InDelta(t, macd[i].Value-signal[i].Value, histogram[i].Value, 1e-9)
		}
	}
}

func TestMACDInsufficientData(t *testing.T) {
	bars := sequentialBars(make([]float64, 10))
	series := MACD(bars, 12, 26, 9)
	assert.Empty(t, series["macd"])
	assert.Empty(t, series["signal"])
	assert.Empty(t, series["histogram"])
}
