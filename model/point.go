package model

import (
	"encoding/json"
	"sort"
	"time"
)

// RawPoint is a single computed indicator value at a bar timestamp. A raw
// series may be shorter than its source bars because of warm-up windows.
type RawPoint struct {
	Time  time.Time
	Value float64
}

// AlignedPoint is one entry of a series mapped onto the source bar timeline.
// Valid=false means the indicator has no value at this bar (warm-up window);
// such points must be preserved through the pipeline and only dropped at the
// final hand-off to a drawing primitive that cannot represent gaps.
type AlignedPoint struct {
	Time  time.Time
	Value float64
	Valid bool
}

// MarshalJSON encodes a gap as an explicit null value, never as zero.
func (p AlignedPoint) MarshalJSON() ([]byte, error) {
	point := struct {
		Time  int64    `json:"time"`
		Value *float64 `json:"value"`
	}{Time: p.Time.Unix()}
	if p.Valid {
		point.Value = &p.Value
	}
	return json.Marshal(point)
}

// SeriesResult is the outcome of one indicator calculation: either a single
// unnamed series or multiple named series (MACD yields macd/signal/histogram).
// Downstream code uses Named to handle both shapes uniformly.
type SeriesResult struct {
	single []RawPoint
	multi  map[string][]RawPoint
}

// SingleSeries wraps a bare series.
func SingleSeries(points []RawPoint) SeriesResult {
	return SeriesResult{single: points}
}

// MultiSeries wraps a named series mapping.
func MultiSeries(series map[string][]RawPoint) SeriesResult {
	return SeriesResult{multi: series}
}

// Empty reports whether the result carries no points at all.
func (r SeriesResult) Empty() bool {
	if len(r.single) > 0 {
		return false
	}
	for _, points := range r.multi {
		if len(points) > 0 {
			return false
		}
	}
	return true
}

// Named returns the result as a name-to-series mapping. A single-series
// result is keyed by defaultName.
func (r SeriesResult) Named(defaultName string) map[string][]RawPoint {
	if r.multi != nil {
		return r.multi
	}
	if r.single == nil {
		return map[string][]RawPoint{}
	}
	return map[string][]RawPoint{defaultName: r.single}
}

// Names returns the series names in deterministic (sorted) order.
func (r SeriesResult) Names(defaultName string) []string {
	named := r.Named(defaultName)
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
