package indicator

import (
	"github.com/samber/lo"

	"github.com/quantview/quantview/model"
)

// Align maps a computed series onto the exact timestamp grid of the source
// bars. The output always has one entry per source bar, in source order, with
// an explicit gap wherever the series has no value at that timestamp. Array
// index zipping is never correct here: a warm-up offset would shift every
// later point in time.
func Align(points []model.RawPoint, bars []model.Bar) []model.AlignedPoint {
	lookup := make(map[int64]float64, len(points))
	for _, p := range points {
		lookup[p.Time.Unix()] = p.Value
	}

	aligned := make([]model.AlignedPoint, len(bars))
	for i, bar := range bars {
		value, ok := lookup[bar.Time.Unix()]
		aligned[i] = model.AlignedPoint{Time: bar.Time, Value: value, Valid: ok}
	}
	return aligned
}

// Valid drops gap points. Only call this at the final hand-off to a drawing
// primitive that cannot represent gaps; tooltips and re-alignment need the
// full timeline.
func Valid(points []model.AlignedPoint) []model.AlignedPoint {
	return lo.Filter(points, func(p model.AlignedPoint, _ int) bool {
		return p.Valid
	})
}
