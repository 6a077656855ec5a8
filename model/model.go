package model

import (
	"fmt"
	"time"
)

// Bar is a single OHLC data point. Bars are immutable once loaded: the feed
// cache owns them for the lifetime of a symbol session and callers must not
// mutate returned slices.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Valid reports whether the bar satisfies OHLC consistency:
// high >= max(open, close), low <= min(open, close), all values >= 0.
func (b Bar) Valid() bool {
	if b.Open < 0 || b.High < 0 || b.Low < 0 || b.Close < 0 || b.Volume < 0 {
		return false
	}
	if b.High < b.Open || b.High < b.Close {
		return false
	}
	if b.Low > b.Open || b.Low > b.Close {
		return false
	}
	return true
}

// VolumePoint is a single volume reading, rendered as a histogram.
type VolumePoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// SymbolData is the full history for one symbol as served by the feed cache.
type SymbolData struct {
	Symbol string
	Bars   []Bar
	Volume []VolumePoint
}

// Kline is one exchange kline row in the source-file layout: millisecond
// timestamps, base fields plus the quote/taker extras exchanges report.
type Kline struct {
	OpenTime            int64
	Open                float64
	High                float64
	Low                 float64
	Close               float64
	Volume              float64
	CloseTime           int64
	QuoteVolume         float64
	TradeCount          int64
	TakerBuyBaseVolume  float64
	TakerBuyQuoteVolume float64
}

// ToRecord renders the kline as a source-file CSV row. The trailing field is
// unused by consumers but kept for layout compatibility.
func (k Kline) ToRecord() []string {
	return []string{
		fmt.Sprintf("%d", k.OpenTime),
		fmt.Sprintf("%f", k.Open),
		fmt.Sprintf("%f", k.High),
		fmt.Sprintf("%f", k.Low),
		fmt.Sprintf("%f", k.Close),
		fmt.Sprintf("%f", k.Volume),
		fmt.Sprintf("%d", k.CloseTime),
		fmt.Sprintf("%f", k.QuoteVolume),
		fmt.Sprintf("%d", k.TradeCount),
		fmt.Sprintf("%f", k.TakerBuyBaseVolume),
		fmt.Sprintf("%f", k.TakerBuyQuoteVolume),
		"0",
	}
}
