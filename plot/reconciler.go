package plot

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/StudioSol/set"

	"github.com/quantview/quantview/indicator"
	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/tools/log"
)

const fallbackSeriesColor = "#2962ff"

type renderedInstance struct {
	instance *model.Instance
	pane     PaneID
	handles  []SeriesHandle
	names    []string
	// values holds valid points per series keyed by unix time, for
	// exact-match crosshair lookups.
	values map[string]map[int64]float64
}

// Reconciler keeps the drawing surface in sync with the desired set of
// indicator instances. Changes are applied as removes and adds only: a
// parameter edit re-renders its instance as a remove followed by an add.
// Series data is computed off the calling goroutine; results that arrive
// after the instance was removed or re-rendered are discarded.
type Reconciler struct {
	engine  *indicator.Engine
	surface Surface

	mu         sync.Mutex
	wg         sync.WaitGroup
	rendered   map[string]*renderedInstance
	renderIDs  *set.LinkedHashSetString
	paneSeries map[PaneID]int
	pending    map[string]pendingCompute
	generation uint64
	// bars fingerprints the source data of the last sync; when it changes
	// every rendered instance is torn down and recomputed on the new bars.
	bars barFingerprint
}

type pendingCompute struct {
	generation uint64
	updatedAt  time.Time
}

type barFingerprint struct {
	count int
	last  int64
}

func fingerprintBars(bars []model.Bar) barFingerprint {
	fingerprint := barFingerprint{count: len(bars)}
	if len(bars) > 0 {
		fingerprint.last = bars[len(bars)-1].Time.Unix()
	}
	return fingerprint
}

// NewReconciler creates a reconciler pushing to the given surface.
func NewReconciler(engine *indicator.Engine, surface Surface) *Reconciler {
	return &Reconciler{
		engine:     engine,
		surface:    surface,
		rendered:   make(map[string]*renderedInstance),
		renderIDs:  set.NewLinkedHashSetString(),
		paneSeries: make(map[PaneID]int),
		pending:    make(map[string]pendingCompute),
	}
}

// Sync diffs the desired instances against what is rendered and applies the
// difference. Removals are applied before any additions so a re-rendered
// instance never has two generations on screen. A change in the source bars
// re-renders every instance. Additions are computed concurrently and
// attached as they complete.
func (r *Reconciler) Sync(instances []*model.Instance, bars []model.Bar) {
	desired := make(map[string]*model.Instance, len(instances))
	for _, instance := range instances {
		desired[instance.ID] = instance
	}

	r.mu.Lock()

	fingerprint := fingerprintBars(bars)
	barsChanged := fingerprint != r.bars
	r.bars = fingerprint

	toRemove := make([]string, 0)
	for id, rendered := range r.rendered {
		target, ok := desired[id]
		if !ok || barsChanged || target.UpdatedAt.After(rendered.instance.UpdatedAt) {
			toRemove = append(toRemove, id)
		}
	}
	sort.Strings(toRemove)

	for _, id := range toRemove {
		r.removeLocked(id)
	}

	// a compute in flight for an instance no longer wanted, or started over
	// an outdated bar set, is abandoned: clearing its pending entry makes
	// the result stale on arrival
	for id := range r.pending {
		if _, ok := desired[id]; !ok || barsChanged {
			delete(r.pending, id)
		}
	}

	for _, instance := range instances {
		if _, ok := r.rendered[instance.ID]; ok {
			continue
		}
		if inFlight, ok := r.pending[instance.ID]; ok && inFlight.updatedAt.Equal(instance.UpdatedAt) {
			continue
		}
		r.generation++
		generation := r.generation
		r.pending[instance.ID] = pendingCompute{generation: generation, updatedAt: instance.UpdatedAt}
		r.wg.Add(1)
		go r.compute(instance, bars, generation)
	}

	r.mu.Unlock()
}

// compute runs off the sync goroutine. The result is attached only if no
// newer sync superseded this computation in the meantime.
func (r *Reconciler) compute(instance *model.Instance, bars []model.Bar, generation uint64) {
	defer r.wg.Done()

	result := r.engine.Compute(*instance, bars)
	series := result.Named(instance.DefinitionID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending[instance.ID].generation != generation {
		log.Debugf("discarding stale result for instance %s", instance.ID)
		return
	}
	delete(r.pending, instance.ID)
	r.attachLocked(instance, series, bars)
}

func (r *Reconciler) attachLocked(instance *model.Instance, series map[string][]model.RawPoint, bars []model.Bar) {
	pane := paneFor(instance)
	if pane != PaneMain && r.paneSeries[pane] == 0 {
		if err := r.surface.CreatePane(pane); err != nil {
			log.Errorf("creating pane %s: %v", pane, err)
			return
		}
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	rendered := &renderedInstance{
		instance: instance,
		pane:     pane,
		names:    names,
		values:   make(map[string]map[int64]float64, len(series)),
	}

	for _, name := range names {
		aligned := indicator.Align(series[name], bars)
		spec := SeriesSpec{
			ID:    fmt.Sprintf("%s:%s", instance.ID, name),
			Name:  name,
			Color: seriesColor(instance, name),
			Width: instance.Style.Width,
			Style: styleFor(name),
			Pane:  pane,
			Data:  aligned,
		}
		handle, err := r.surface.AddSeries(spec)
		if err != nil {
			log.Errorf("adding series %s: %v", spec.ID, err)
			continue
		}
		rendered.handles = append(rendered.handles, handle)
		rendered.values[name] = valueIndex(aligned)
		r.paneSeries[pane]++
	}

	r.rendered[instance.ID] = rendered
	r.renderIDs.Add(instance.ID)
}

func (r *Reconciler) removeLocked(id string) {
	rendered, ok := r.rendered[id]
	if !ok {
		return
	}
	for _, handle := range rendered.handles {
		if err := r.surface.RemoveSeries(handle); err != nil {
			log.Errorf("removing series %s: %v", handle.ID, err)
		}
		r.paneSeries[rendered.pane]--
	}
	if rendered.pane != PaneMain && r.paneSeries[rendered.pane] <= 0 {
		delete(r.paneSeries, rendered.pane)
		if err := r.surface.RemovePane(rendered.pane); err != nil {
			log.Errorf("removing pane %s: %v", rendered.pane, err)
		}
	}
	delete(r.rendered, id)
	delete(r.pending, id)
	r.renderIDs.Remove(id)
}

// Wait blocks until all in-flight computations finish. Intended for tests
// and shutdown.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// TooltipValue is one series reading under the crosshair.
type TooltipValue struct {
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Value float64 `json:"value"`
}

// Tooltip groups the readings of one instance at one timestamp.
type Tooltip struct {
	InstanceID   string         `json:"instanceId"`
	DefinitionID string         `json:"definitionId"`
	Values       []TooltipValue `json:"values"`
}

// ValuesAt returns the tooltip rows for the exact timestamp t, in render
// order. Series with no valid value at t are left out entirely: the
// crosshair never interpolates across gaps.
func (r *Reconciler) ValuesAt(t time.Time) []Tooltip {
	key := t.Unix()
	r.mu.Lock()
	defer r.mu.Unlock()

	tooltips := make([]Tooltip, 0)
	for id := range r.renderIDs.Iter() {
		rendered, ok := r.rendered[id]
		if !ok {
			continue
		}
		values := make([]TooltipValue, 0, len(rendered.names))
		for _, name := range rendered.names {
			value, ok := rendered.values[name][key]
			if !ok {
				continue
			}
			values = append(values, TooltipValue{
				Name:  name,
				Color: seriesColor(rendered.instance, name),
				Value: value,
			})
		}
		if len(values) == 0 {
			continue
		}
		tooltips = append(tooltips, Tooltip{
			InstanceID:   id,
			DefinitionID: rendered.instance.DefinitionID,
			Values:       values,
		})
	}
	return tooltips
}

// Rendered reports whether an instance currently has series on the surface.
func (r *Reconciler) Rendered(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rendered[id]
	return ok
}

func paneFor(instance *model.Instance) PaneID {
	if instance.Pane == model.PaneMain {
		return PaneMain
	}
	return PaneID("sub:" + instance.ID)
}

func seriesColor(instance *model.Instance, name string) string {
	if color := instance.SeriesColor(name); color != "" {
		return color
	}
	return fallbackSeriesColor
}

func styleFor(name string) SeriesStyle {
	if name == "histogram" || name == "volume" {
		return StyleHistogram
	}
	return StyleLine
}

func valueIndex(points []model.AlignedPoint) map[int64]float64 {
	index := make(map[int64]float64, len(points))
	for _, point := range points {
		if point.Valid {
			index[point.Time.Unix()] = point.Value
		}
	}
	return index
}
