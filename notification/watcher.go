package notification

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/service"
)

// Direction says which way a threshold must be crossed to fire an alert.
type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
)

// Alert watches the latest value of one indicator instance series.
type Alert struct {
	InstanceID string
	Series     string
	Direction  Direction
	Threshold  float64
	// OneShot alerts are dropped after firing; persistent alerts re-arm
	// and fire again on the next crossing.
	OneShot bool

	fired bool
}

// crossed reports whether the series crossed the threshold on its latest
// value, checked against a flat reference series at the threshold. A fresh
// series with a single value beyond the threshold counts as crossed too.
func (a Alert) crossed(values model.Series[float64]) bool {
	if values.Length() == 0 {
		return false
	}
	if values.Length() == 1 {
		if a.Direction == Above {
			return values.Last(0) > a.Threshold
		}
		return values.Last(0) < a.Threshold
	}

	reference := model.Series[float64]{a.Threshold, a.Threshold}
	recent := model.Series[float64](values.LastValues(2))
	if a.Direction == Above {
		return recent.Crossover(reference)
	}
	return recent.Crossunder(reference)
}

// Watcher checks indicator results against configured alerts and notifies on
// threshold crossings. An alert fires once per crossing, not once per bar.
type Watcher struct {
	mu       sync.Mutex
	notifier service.Notifier
	alerts   []*Alert
}

// NewWatcher creates a watcher sending through the given notifier.
func NewWatcher(notifier service.Notifier) *Watcher {
	return &Watcher{notifier: notifier}
}

// Add registers an alert.
func (w *Watcher) Add(alert Alert) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.alerts = append(w.alerts, &alert)
}

// Remove drops all alerts for an instance. Called when the instance itself
// is removed.
func (w *Watcher) Remove(instanceID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.alerts = lo.Filter(w.alerts, func(alert *Alert, _ int) bool {
		return alert.InstanceID != instanceID
	})
}

// Len returns the number of registered alerts.
func (w *Watcher) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.alerts)
}

// Check evaluates the freshly computed series of one instance. series maps
// output names to raw points; only the tail of each series matters.
func (w *Watcher) Check(instanceID string, series map[string][]model.RawPoint) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.alerts = lo.Filter(w.alerts, func(alert *Alert, _ int) bool {
		if alert.InstanceID != instanceID {
			return true
		}
		points, ok := series[alert.Series]
		if !ok || len(points) == 0 {
			return true
		}
		values := make(model.Series[float64], len(points))
		for i, point := range points {
			values[i] = point.Value
		}

		if !alert.crossed(values) {
			alert.fired = false
			return true
		}
		if alert.fired {
			return true
		}
		alert.fired = true
		w.notifier.Notify(fmt.Sprintf("indicator %s %s is %s %.4f (value %.4f)",
			instanceID, alert.Series, alert.Direction, alert.Threshold, values.Last(0)))
		return !alert.OneShot
	})
}
