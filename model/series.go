package model

import (
	"golang.org/x/exp/constraints"
)

// Series is a generic slice of time-ordered values.
type Series[T constraints.Ordered] []T

// Values returns the values in the series.
func (s Series[T]) Values() []T {
	return s
}

// Length returns the number of values in the series.
func (s Series[T]) Length() int {
	return len(s)
}

// Last returns the value at the given past position, Last(0) being the most
// recent one.
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

// LastValues returns the last values of the series, up to the given size.
func (s Series[T]) LastValues(size int) []T {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Crossover reports whether the series crossed above the reference series on
// the last value.
func (s Series[T]) Crossover(ref Series[T]) bool {
	return s.Last(0) > ref.Last(0) && s.Last(1) <= ref.Last(1)
}

// Crossunder reports whether the series crossed below the reference series on
// the last value.
func (s Series[T]) Crossunder(ref Series[T]) bool {
	return s.Last(0) <= ref.Last(0) && s.Last(1) > ref.Last(1)
}

// Cross reports a crossing in either direction.
func (s Series[T]) Cross(ref Series[T]) bool {
	return s.Crossover(ref) || s.Crossunder(ref)
}
