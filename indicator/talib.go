package indicator

import (
	"github.com/markcheno/go-talib"

	"github.com/quantview/quantview/model"
)

// Supplemental calculators backed by go-talib. talib returns full-length
// arrays with zeroed lookback prefixes; points are emitted from the lookback
// index onward so the alignment step sees real gaps, not zeros.

func closes(bars []model.Bar) []float64 {
	values := make([]float64, len(bars))
	for i, bar := range bars {
		values[i] = bar.Close
	}
	return values
}

func highs(bars []model.Bar) []float64 {
	values := make([]float64, len(bars))
	for i, bar := range bars {
		values[i] = bar.High
	}
	return values
}

func lows(bars []model.Bar) []float64 {
	values := make([]float64, len(bars))
	for i, bar := range bars {
		values[i] = bar.Low
	}
	return values
}

func pointsFrom(bars []model.Bar, values []float64, lookback int) []model.RawPoint {
	if lookback < 0 || lookback >= len(bars) {
		return nil
	}
	out := make([]model.RawPoint, 0, len(bars)-lookback)
	for i := lookback; i < len(bars); i++ {
		out = append(out, model.RawPoint{Time: bars[i].Time, Value: values[i]})
	}
	return out
}

// BBands computes Bollinger Bands over closes.
func BBands(bars []model.Bar, period int, deviation float64) map[string][]model.RawPoint {
	if period <= 0 || len(bars) < period {
		return nil
	}
	upper, middle, lower := talib.BBands(closes(bars), period, deviation, deviation, talib.SMA)
	lookback := period - 1
	return map[string][]model.RawPoint{
		"upper":  pointsFrom(bars, upper, lookback),
		"middle": pointsFrom(bars, middle, lookback),
		"lower":  pointsFrom(bars, lower, lookback),
	}
}

// Stoch computes the slow stochastic oscillator.
func Stoch(bars []model.Bar, fastK, slowK, slowD int) map[string][]model.RawPoint {
	lookback := (fastK - 1) + (slowK - 1) + (slowD - 1)
	if fastK <= 0 || slowK <= 0 || slowD <= 0 || len(bars) <= lookback {
		return nil
	}
	k, d := talib.Stoch(highs(bars), lows(bars), closes(bars), fastK, slowK, talib.SMA, slowD, talib.SMA)
	return map[string][]model.RawPoint{
		"k": pointsFrom(bars, k, lookback),
		"d": pointsFrom(bars, d, lookback),
	}
}

// WillR computes Williams %R.
func WillR(bars []model.Bar, period int) []model.RawPoint {
	if period <= 0 || len(bars) < period {
		return nil
	}
	values := talib.WillR(highs(bars), lows(bars), closes(bars), period)
	return pointsFrom(bars, values, period-1)
}
