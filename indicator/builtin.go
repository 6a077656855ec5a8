package indicator

import (
	"github.com/quantview/quantview/model"
)

// SourceClose is the default price field indicators compute over.
const SourceClose = "close"

func sourcePoints(bars []model.Bar, source string) []model.RawPoint {
	points := make([]model.RawPoint, len(bars))
	for i, bar := range bars {
		value := bar.Close
		switch source {
		case "open":
			value = bar.Open
		case "high":
			value = bar.High
		case "low":
			value = bar.Low
		case "volume":
			value = bar.Volume
		}
		points[i] = model.RawPoint{Time: bar.Time, Value: value}
	}
	return points
}

// SMA computes a simple moving average over the given source field. The
// first output appears at bar index period-1; insufficient data yields an
// empty series.
func SMA(bars []model.Bar, period int, source string) []model.RawPoint {
	if period <= 0 || len(bars) < period {
		return nil
	}
	points := sourcePoints(bars, source)
	out := make([]model.RawPoint, 0, len(points)-period+1)
	var sum float64
	for i, p := range points {
		sum += p.Value
		if i >= period {
			sum -= points[i-period].Value
		}
		if i >= period-1 {
			out = append(out, model.RawPoint{Time: p.Time, Value: sum / float64(period)})
		}
	}
	return out
}

// EMA computes an exponential moving average over the given source field.
// The recurrence is seeded with the first value (not an SMA seed) and output
// starts at bar index period-1, so fast and slow EMAs over the same bars have
// different warm-up lengths.
func EMA(bars []model.Bar, period int, source string) []model.RawPoint {
	return emaPoints(sourcePoints(bars, source), period)
}

func emaPoints(points []model.RawPoint, period int) []model.RawPoint {
	if period <= 0 || len(points) < period {
		return nil
	}
	k := 2.0 / float64(period+1)
	ema := points[0].Value
	out := make([]model.RawPoint, 0, len(points)-period+1)
	for i, p := range points {
		if i > 0 {
			ema = (p.Value-ema)*k + ema
		}
		if i >= period-1 {
			out = append(out, model.RawPoint{Time: p.Time, Value: ema})
		}
	}
	return out
}

// RSI computes the relative strength index over close-to-close changes using
// simple (not Wilder-smoothed) trailing averages. The first output appears at
// bar index period, one bar after period changes are available. By
// convention RSI is 100 when the average loss is exactly zero.
func RSI(bars []model.Bar, period int) []model.RawPoint {
	if period <= 0 || len(bars) < period+1 {
		return nil
	}
	gains := make([]float64, len(bars))
	losses := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	out := make([]model.RawPoint, 0, len(bars)-period)
	var gainSum, lossSum float64
	for i := 1; i < len(bars); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period {
			continue
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		value := 100.0
		if avgLoss != 0 {
			value = 100.0 - 100.0/(1.0+avgGain/avgLoss)
		}
		out = append(out, model.RawPoint{Time: bars[i].Time, Value: value})
	}
	return out
}

// MACD computes the MACD line, signal line and histogram. The two EMAs are
// joined by timestamp, never by array index: their warm-up lengths differ and
// index zipping would silently shift values in time. The signal EMA runs only
// over bars where the MACD line has a value.
func MACD(bars []model.Bar, fastPeriod, slowPeriod, signalPeriod int) map[string][]model.RawPoint {
	fast := EMA(bars, fastPeriod, SourceClose)
	slow := EMA(bars, slowPeriod, SourceClose)

	fastAt := make(map[int64]float64, len(fast))
	for _, p := range fast {
		fastAt[p.Time.Unix()] = p.Value
	}

	macd := make([]model.RawPoint, 0, len(slow))
	for _, p := range slow {
		if f, ok := fastAt[p.Time.Unix()]; ok {
			macd = append(macd, model.RawPoint{Time: p.Time, Value: f - p.Value})
		}
	}

	signal := emaPoints(macd, signalPeriod)
	signalAt := make(map[int64]float64, len(signal))
	for _, p := range signal {
		signalAt[p.Time.Unix()] = p.Value
	}

	histogram := make([]model.RawPoint, 0, len(signal))
	for _, p := range macd {
		if s, ok := signalAt[p.Time.Unix()]; ok {
			histogram = append(histogram, model.RawPoint{Time: p.Time, Value: p.Value - s})
		}
	}

	return map[string][]model.RawPoint{
		"macd":      macd,
		"signal":    signal,
		"histogram": histogram,
	}
}
